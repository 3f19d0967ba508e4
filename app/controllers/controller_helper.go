package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/usercontext"
)

var validate = validator.New()

// GetClientIP determines the client IP address considering proxies.
// Cloudflare's header wins, then the first X-Forwarded-For hop, then
// X-Real-IP, then the socket address.
func GetClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}

	ip := c.IP()
	// IPv4-mapped IPv6 (::ffff:192.168.1.1)
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}

// guardRequest collects what the request guard needs from the HTTP request.
func guardRequest(c *fiber.Ctx) guard.Request {
	return guard.Request{
		Credential: usercontext.Credential(c),
		IP:         GetClientIP(c),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	}
}

// failing is an action that reports err once the caller has been authorized.
// Input errors are surfaced after authentication so anonymous callers always
// see 401 first.
func failing(err error) guard.Action {
	return func(_ context.Context, _ *guard.Scope) (*guard.Result, error) {
		return nil, err
	}
}

// decodeBody decodes a JSON body without validating it.
func decodeBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "malformed request body")
	}
	return nil
}

// parseBody decodes and validates a JSON body.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := decodeBody(c, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return apperror.FromValidation(err)
	}
	return nil
}

func uintParam(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperror.New(apperror.KindValidation, "invalid %s", name)
	}
	return uint(v), nil
}

func optionalUintQuery(c *fiber.Ctx, name string) *uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	u := uint(v)
	return &u
}

// respond turns a guard outcome into the HTTP response.
func respond(c *fiber.Ctx, out guard.Outcome) error {
	if out.OK() {
		return c.Status(fiber.StatusOK).JSON(out.Entity)
	}
	return writeError(c, out.Err)
}

// writeError renders the JSON error envelope. Internal failures are reported
// without detail; they were logged by the guard.
func writeError(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	body := fiber.Map{"error": string(kind)}

	if apperror.IsInternal(kind) {
		body["message"] = "internal server error"
		return c.Status(apperror.HTTPStatus(kind)).JSON(body)
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			body[k] = v
		}
		body["message"] = appErr.Error()
		if appErr.Message != "" {
			body["message"] = appErr.Message
		}
	} else {
		body["message"] = err.Error()
	}
	return c.Status(apperror.HTTPStatus(kind)).JSON(body)
}
