package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/operations"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/policy"
)

var (
	routeMe             = guard.Route{Name: "me", Roles: policy.AnyMember}
	routeFeatures       = guard.Route{Name: "church.features", Roles: policy.AnyMember}
	routeAdvancedReport = guard.Route{Name: "church.reports.advanced", Roles: policy.AdminsOnly, Feature: entitlements.FeatureAdvancedReports}
)

// ChurchController serves caller- and church-scoped reads.
type ChurchController struct {
	guard *guard.Guard
	cache operations.FeatureCache
	log   *zap.Logger
}

func NewChurchController(g *guard.Guard, cache operations.FeatureCache, log *zap.Logger) *ChurchController {
	return &ChurchController{guard: g, cache: cache, log: log}
}

func (cc *ChurchController) HandleMe(c *fiber.Ctx) error {
	return respond(c, cc.guard.Run(c.UserContext(), guardRequest(c), routeMe, operations.Me()))
}

func (cc *ChurchController) HandleFeatures(c *fiber.Ctx) error {
	return respond(c, cc.guard.Run(c.UserContext(), guardRequest(c), routeFeatures, operations.ChurchFeatures(cc.cache, cc.log)))
}

func (cc *ChurchController) HandleAdvancedReport(c *fiber.Ctx) error {
	return respond(c, cc.guard.Run(c.UserContext(), guardRequest(c), routeAdvancedReport, operations.ChurchReport()))
}
