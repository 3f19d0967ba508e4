package guard

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/policy"
)

// Route declares what a privileged operation requires. An empty Feature
// means the route is not feature gated.
type Route struct {
	Name    string
	Roles   policy.RoleSet
	Feature entitlements.Feature
}

// Request carries what the transport layer extracted from the inbound call.
type Request struct {
	Credential string
	IP         string
	UserAgent  string
}

// Scope is what an action sees. Repos is bound to the action's transaction;
// reads and writes must go through it.
type Scope struct {
	Identity identity.Identity
	User     *models.User
	Church   *models.Church
	Repos    *repository.Repositories
}

// Authenticated reports whether the scope belongs to a verified caller.
func (s *Scope) Authenticated() bool {
	return s.User != nil
}

// Result is returned by a successful action. Audit, when set, is recorded in
// the same transaction as the mutation. AfterCommit hooks run once the
// transaction is committed; their failures are logged, never reported.
type Result struct {
	Entity      any
	Audit       *audit.Entry
	Actor       *audit.Actor
	AfterCommit []func(ctx context.Context) error
}

// Action is the business step of a guarded request.
type Action func(ctx context.Context, s *Scope) (*Result, error)

// Check is a guard-level precondition evaluated before the action runs.
type Check func(s *Scope) error

// ForbidSelf rejects requests where the caller targets their own user record.
func ForbidSelf(targetUserID uint) Check {
	return func(s *Scope) error {
		if s.User != nil && s.User.ID == targetUserID {
			return apperror.New(apperror.KindSelfActionForbidden, "you cannot perform this action on your own account")
		}
		return nil
	}
}

// Outcome is the typed result handed back to the transport layer.
type Outcome struct {
	Kind   apperror.Kind
	Status int
	Entity any
	Err    error
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Observer is told the outcome kind of every guarded request. An empty kind
// means success.
type Observer interface {
	Observe(ctx context.Context, route string, kind apperror.Kind) error
}

// Guard composes identity resolution, role policy, entitlements, the action
// and the audit append for every privileged request.
type Guard struct {
	resolver *identity.Resolver
	repos    *repository.Repositories
	tx       repository.TxManager
	recorder *audit.Recorder
	log      *zap.Logger
	observer Observer
}

func New(resolver *identity.Resolver, repos *repository.Repositories, tx repository.TxManager, recorder *audit.Recorder, log *zap.Logger) *Guard {
	if recorder == nil {
		recorder = audit.NewRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{resolver: resolver, repos: repos, tx: tx, recorder: recorder, log: log}
}

// WithObserver installs an outcome observer.
func (g *Guard) WithObserver(o Observer) *Guard {
	g.observer = o
	return g
}

// Authenticate resolves the credential and checks it against the stored
// account. A credential whose role or church no longer matches the user
// record is treated as unauthenticated.
func (g *Guard) Authenticate(ctx context.Context, credential string) (identity.Identity, *models.User, error) {
	id, ok := g.resolver.Resolve(credential)
	if !ok {
		return identity.Identity{}, nil, apperror.New(apperror.KindUnauthenticated, "authentication required")
	}

	user, err := g.repos.User.GetByID(ctx, id.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return identity.Identity{}, nil, apperror.New(apperror.KindUnauthenticated, "account no longer exists")
	}
	if err != nil {
		return identity.Identity{}, nil, err
	}
	if user.Role != id.Role || !user.SameChurch(id.ChurchID) {
		return identity.Identity{}, nil, apperror.New(apperror.KindUnauthenticated, "credential does not match account")
	}
	return id, user, nil
}

// Run executes a guarded request in order: identity, role policy,
// entitlement, guard checks, then the action and its audit entry.
func (g *Guard) Run(ctx context.Context, req Request, route Route, action Action, checks ...Check) Outcome {
	return g.observe(ctx, route, g.run(ctx, req, route, action, checks))
}

func (g *Guard) run(ctx context.Context, req Request, route Route, action Action, checks []Check) Outcome {
	id, user, err := g.Authenticate(ctx, req.Credential)
	if err != nil {
		return g.fail(route, nil, err)
	}
	log := g.log.With(zap.String("route", route.Name), zap.Uint("user_id", user.ID))

	if err := policy.Authorize(&id, route.Roles).Err(); err != nil {
		return g.fail(route, log, err)
	}

	scope := &Scope{Identity: id, User: user}
	if id.HasChurch() {
		church, err := g.repos.Church.GetByID(ctx, *id.ChurchID)
		if errors.Is(err, apperror.ErrNotFound) {
			return g.fail(route, log, apperror.New(apperror.KindAuthorizationDenied, "church no longer exists"))
		}
		if err != nil {
			return g.fail(route, log, err)
		}
		if !church.IsActive && id.Role != models.RoleSuperAdmin {
			return g.fail(route, log, apperror.New(apperror.KindAuthorizationDenied, "church is deactivated"))
		}
		scope.Church = church
	}

	if route.Feature != "" {
		if err := g.entitled(ctx, scope.Church, route.Feature); err != nil {
			return g.fail(route, log, err)
		}
	}

	return g.execute(ctx, req, route, log, scope, action, checks)
}

// RunAnonymous executes an action without a caller identity, for flows such
// as invitation acceptance where the token itself authorizes the request.
func (g *Guard) RunAnonymous(ctx context.Context, req Request, route Route, action Action, checks ...Check) Outcome {
	log := g.log.With(zap.String("route", route.Name))
	return g.observe(ctx, route, g.execute(ctx, req, route, log, &Scope{}, action, checks))
}

func (g *Guard) observe(ctx context.Context, route Route, out Outcome) Outcome {
	if g.observer == nil {
		return out
	}
	if err := g.observer.Observe(context.WithoutCancel(ctx), route.Name, out.Kind); err != nil {
		g.log.Warn("outcome observer failed", zap.String("route", route.Name), zap.Error(err))
	}
	return out
}

func (g *Guard) entitled(ctx context.Context, church *models.Church, feature entitlements.Feature) error {
	if _, err := entitlements.ParseFeature(string(feature)); err != nil {
		return err
	}
	if church == nil {
		return apperror.New(apperror.KindEntitlementDenied, "feature requires a church").With("feature", string(feature))
	}

	sub, err := g.repos.Subscription.GetCurrent(ctx, church.ID)
	if err != nil {
		return err
	}
	ok, err := entitlements.HasFeatureAccess(sub, entitlements.OverridesFor(church), feature)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.KindEntitlementDenied, "your plan does not include %s", feature).With("feature", string(feature))
	}
	return nil
}

func (g *Guard) execute(ctx context.Context, req Request, route Route, log *zap.Logger, scope *Scope, action Action, checks []Check) Outcome {
	for _, check := range checks {
		if err := check(scope); err != nil {
			return g.fail(route, log, err)
		}
	}

	var result *Result
	err := g.tx.RunInTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		scope.Repos = repos

		res, err := action(ctx, scope)
		if err != nil {
			return err
		}
		if res == nil {
			res = &Result{}
		}

		if res.Audit != nil {
			actor := audit.ActorFromUser(scope.User)
			if res.Actor != nil {
				actor = *res.Actor
			}
			src := audit.Source{IP: req.IP, UserAgent: req.UserAgent}
			if _, err := g.recorder.Record(ctx, repos.AuditLog, actor, *res.Audit, src); err != nil {
				return err
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return g.fail(route, log, err)
	}

	g.afterCommit(ctx, log, result.AfterCommit)
	return Outcome{Status: http.StatusOK, Entity: result.Entity}
}

func (g *Guard) afterCommit(ctx context.Context, log *zap.Logger, hooks []func(context.Context) error) {
	if len(hooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			log.Warn("after-commit hook failed", zap.Error(err))
		}
	}
}

func (g *Guard) fail(route Route, log *zap.Logger, err error) Outcome {
	if log == nil {
		log = g.log.With(zap.String("route", route.Name))
	}
	kind := apperror.KindOf(err)
	if apperror.IsInternal(kind) {
		log.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	return Outcome{Kind: kind, Status: apperror.HTTPStatus(kind), Err: err}
}
