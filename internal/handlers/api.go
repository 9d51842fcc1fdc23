package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/realtime"
	"github.com/hmaged/signfleet/internal/repositories"
	"github.com/hmaged/signfleet/internal/services"
)

type API struct {
	auth       *services.AuthService
	setups     *services.SetupService
	uploads    *services.UploadService
	devices    repositories.DeviceRepository
	sessions   *realtime.SessionManager
	statusFeed *realtime.StatusFeed
	activation *realtime.Activation
	sender     *realtime.InstructionSender
	codes      *realtime.CodeIssuer
	log        *zap.Logger
}

func NewAPI(
	auth *services.AuthService,
	setups *services.SetupService,
	uploads *services.UploadService,
	devices repositories.DeviceRepository,
	sessions *realtime.SessionManager,
	statusFeed *realtime.StatusFeed,
	activation *realtime.Activation,
	sender *realtime.InstructionSender,
	codes *realtime.CodeIssuer,
	log *zap.Logger,
) *API {
	return &API{
		auth:       auth,
		setups:     setups,
		uploads:    uploads,
		devices:    devices,
		sessions:   sessions,
		statusFeed: statusFeed,
		activation: activation,
		sender:     sender,
		codes:      codes,
		log:        log,
	}
}

func (a *API) Routes(corsOrigins []string) chi.Router {
	router := chi.NewRouter()
	router.Use(RequestLogger(a.log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/admins", func(r chi.Router) {
		r.Post("/login", a.Login)
	})

	router.Route("/codes", func(r chi.Router) {
		r.Get("/", a.IssueCode)
		r.Get("/{code}/status", a.AwaitActivation)
	})

	router.Route("/devices", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(a.DeviceOnly)
			r.Get("/me", a.GetCurrentDevice)
			r.Get("/me/instructions", a.StreamInstructions)
		})
		r.Group(func(r chi.Router) {
			r.Use(a.AdminOnly)
			r.Post("/", a.ActivateDevice)
			r.Get("/", a.ListDevices)
			r.Get("/status", a.StreamDeviceStatus)
			r.Get("/{deviceID}", a.GetDevice)
			r.Put("/{deviceID}", a.UpdateDevice)
			r.Delete("/{deviceID}", a.DeleteDevice)
			r.Put("/{deviceID}/instructions/take-snapshot", a.SendSnapshot)
		})
	})

	router.Route("/setups", func(r chi.Router) {
		r.Use(a.AdminOnly)
		r.Get("/", a.ListSetups)
		r.Post("/", a.CreateSetup)
		r.Get("/generate-upload-url/{fileName}", a.GenerateUploadURL)
		r.Get("/{setupID}", a.GetSetup)
		r.Put("/{setupID}", a.UpdateSetup)
		r.Delete("/{setupID}", a.DeleteSetup)
	})

	return router
}
