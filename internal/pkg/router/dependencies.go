package router

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ChurchDesk/app/controllers"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/cache"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/invitation"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/operations"
)

// Dependencies holds the controllers and shared services the routers wire up.
type Dependencies struct {
	Repos       *repository.Repositories
	Resolver    *identity.Resolver
	Guard       *guard.Guard
	Auth        *controllers.AuthController
	Church      *controllers.ChurchController
	Invitations *controllers.InvitationController
	Admin       *controllers.AdminController
}

// NewDependencies builds the request guard and controllers on top of db. A
// nil rdb disables the feature cache.
func NewDependencies(db *gorm.DB, resolver *identity.Resolver, rdb *redis.Client, notifier operations.InvitationNotifier, log *zap.Logger) *Dependencies {
	if log == nil {
		log = zap.NewNop()
	}
	factory := repository.NewFactory(db)
	repos := factory.GetRepositories()
	counters := counter.NewOutcomes(rdb)
	g := guard.New(resolver, repos, factory.GetTxManager(), audit.NewRecorder(), log).WithObserver(counters)

	var features *cache.FeatureCache
	if rdb != nil {
		features = cache.NewFeatureCache(rdb, cache.DefaultFeatureTTL)
	}

	return &Dependencies{
		Repos:       repos,
		Resolver:    resolver,
		Guard:       g,
		Auth:        controllers.NewAuthController(resolver, repos.User, log),
		Church:      controllers.NewChurchController(g, features, log),
		Invitations: controllers.NewInvitationController(g, invitation.NewService(), notifier),
		Admin:       controllers.NewAdminController(g, features, counters),
	}
}
