// Package app builds the service graph shared by the API server and voicectl.
package app

import (
	"database/sql"
	"net/http"
	"time"

	"voice-agent-platform/internal/agents"
	"voice-agent-platform/internal/audit"
	"voice-agent-platform/internal/cache"
	"voice-agent-platform/internal/calls"
	"voice-agent-platform/internal/config"
	"voice-agent-platform/internal/numbers"
	"voice-agent-platform/internal/objectstore"
	"voice-agent-platform/internal/profiles"
	"voice-agent-platform/internal/reporting"
	"voice-agent-platform/internal/routing"
	"voice-agent-platform/internal/session"
	"voice-agent-platform/internal/subscriptions"
	"voice-agent-platform/internal/telephony"
	"voice-agent-platform/internal/voices"
	"voice-agent-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const provisionLockTTL = 2 * time.Minute

// App holds every wired service. Fields are safe for concurrent use.
type App struct {
	Audit    *audit.Service
	Sessions *session.Manager

	Agents      *agents.Service
	AgentSweep  *agents.Reconciler
	Numbers     *numbers.Service
	NumberSweep *numbers.Reconciler

	Voices    *voices.Service
	VoiceSync *voices.Syncer
	Previews  *voices.Organizer

	Calls         *calls.Service
	Reporting     *reporting.Service
	Subscriptions *subscriptions.Service

	Router   telephony.InboundRouter
	Webhooks telephony.TwilioWebhookHandler
}

// New wires Postgres repositories, Redis-backed cache, sessions and the
// provisioning lock, and the Twilio, Ultravox and storage clients.
func New(cfg config.Config, db *sql.DB, rdb *redis.Client, hc *http.Client) (*App, error) {
	if hc == nil {
		hc = http.DefaultClient
	}

	twilio, err := telephony.NewTwilioClient(cfg.Twilio, hc)
	if err != nil {
		return nil, err
	}
	catalog, err := voices.NewUltravoxClient(cfg.Ultravox, hc)
	if err != nil {
		return nil, err
	}
	store, err := objectstore.NewSupabaseStore(cfg.Storage, hc)
	if err != nil {
		return nil, err
	}

	return Wire(Deps{
		DB:        db,
		Listings:  cache.NewRedisStore(rdb),
		Sessions:  session.NewRedisStore(rdb),
		Lock:      utils.RedisLock{Client: rdb, TTL: provisionLockTTL},
		Directory: twilio,
		Catalog:   catalog,
		Store:     store,
		HTTP:      hc,
		Config:    cfg,
	}), nil
}

// Deps are the external collaborators Wire needs. Tests pass memory fakes.
type Deps struct {
	// DB nil selects memory repositories.
	DB        *sql.DB
	Listings  cache.Store
	Sessions  session.Store
	Lock      numbers.Locker
	Directory telephony.Directory
	Catalog   voices.Catalog
	Store     objectstore.Store
	HTTP      *http.Client
	Config    config.Config
	// Profiles overrides the profile repository chosen from DB.
	Profiles profiles.Repository
}

func Wire(d Deps) *App {
	var (
		auditRepo   audit.Repository
		agentRepo   agents.Repository
		numberRepo  numbers.Repository
		voiceRepo   voices.Repository
		callRepo    calls.Repository
		profileRepo profiles.Repository
		subRepo     subscriptions.Repository
		tx          utils.TxRunner
	)
	if d.DB != nil {
		auditRepo = audit.NewPostgresRepo(d.DB)
		agentRepo = agents.NewPostgresRepo(d.DB)
		numberRepo = numbers.NewPostgresRepo(d.DB)
		voiceRepo = voices.NewPostgresRepo(d.DB)
		callRepo = calls.NewPostgresRepo(d.DB)
		profileRepo = profiles.NewPostgresRepo(d.DB)
		subRepo = subscriptions.NewPostgresRepo(d.DB)
		tx = utils.SQLTx{DB: d.DB}
	} else {
		auditRepo = audit.NewMemoryRepo()
		agentRepo = agents.NewMemoryRepo()
		numberRepo = numbers.NewMemoryRepo()
		voiceRepo = voices.NewMemoryRepo()
		callRepo = calls.NewMemoryRepo()
		profileRepo = profiles.NewMemoryRepo()
		subRepo = &subscriptions.MemoryRepo{}
		tx = utils.NoTx{}
	}
	if d.Profiles != nil {
		profileRepo = d.Profiles
	}
	listings := d.Listings
	if listings == nil {
		listings = cache.NewMemoryStore()
	}
	sessionStore := d.Sessions
	if sessionStore == nil {
		sessionStore = session.NewMemoryStore()
	}

	a := &App{}
	a.Audit = audit.NewService(auditRepo)
	a.Sessions = session.NewManager(sessionStore, profiles.AdminChecker{Repo: profileRepo}, d.Config.Session.InactivityTimeout)

	a.Voices = voices.NewService(voiceRepo)
	a.VoiceSync = &voices.Syncer{
		Catalog:         d.Catalog,
		Store:           d.Store,
		Repo:            voiceRepo,
		Audit:           a.Audit,
		HTTP:            d.HTTP,
		MaxPreviewBytes: d.Config.VoiceSync.MaxPreviewBytes,
		Concurrency:     d.Config.VoiceSync.Concurrency,
	}
	a.Previews = &voices.Organizer{
		Store:       d.Store,
		Repo:        voiceRepo,
		Audit:       a.Audit,
		Concurrency: d.Config.VoiceSync.Concurrency,
	}

	a.Agents = agents.NewService(agents.Deps{
		Repo:     agentRepo,
		Numbers:  numberRepo,
		Tx:       tx,
		Voices:   a.Voices,
		Listings: listings,
		Audit:    a.Audit,
	})
	a.AgentSweep = &agents.Reconciler{Agents: agentRepo, Numbers: numberRepo, Listings: listings, Audit: a.Audit}

	a.Numbers = numbers.NewService(numbers.Deps{
		Directory: d.Directory,
		Repo:      numberRepo,
		Listings:  listings,
		Audit:     a.Audit,
		Lock:      d.Lock,
		Agents:    a.Agents,
	})
	a.NumberSweep = &numbers.Reconciler{Directory: d.Directory, Repo: numberRepo, Listings: listings, Audit: a.Audit}

	a.Calls = calls.NewService(callRepo, a.Numbers)
	a.Reporting = reporting.NewService(a.Calls)
	a.Subscriptions = subscriptions.NewService(subRepo)

	a.Router = routing.NewEngineAdapter(routing.NewRoutingEngine(a.Numbers, a.Agents, d.Config.Twilio.SIPDomain))
	a.Webhooks = telephony.TwilioWebhookHandler{
		Router:    a.Router,
		Calls:     a.Calls,
		AuthToken: d.Config.Twilio.AuthToken,
	}
	return a
}
