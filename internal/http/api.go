package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gatelog/internal/domain"
	"gatelog/internal/service"
)

// Options tunes the HTTP surface. Zero values pick the defaults.
type Options struct {
	// RateLimit caps /login and POST /sensor requests per IP per minute. Zero disables it.
	RateLimit int
	// Now is the clock used for gate toggles.
	Now func() time.Time
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	gate     service.GateService
	reports  service.ReportService
	realtime http.Handler
	logger   *logrus.Logger
	opts     Options
}

func NewHandler(users service.UserService, gate service.GateService, reports service.ReportService, realtime http.Handler, logger *logrus.Logger, opts Options) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		users:    users,
		gate:     gate,
		reports:  reports,
		realtime: realtime,
		logger:   logger,
		opts:     opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))
	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, msgRouteNotAvailable, nil)
	})

	authed := h.requireAuth()
	admin := h.requireRole(domain.RoleAdmin)

	router.GET("/", func(c *gin.Context) { ok(c, msgHello, nil) })
	router.POST("/login", rateLimit(h.opts.RateLimit, time.Minute), h.login)
	router.GET("/me", h.me)
	router.GET("/sensor", authed, h.listSensors)
	router.POST("/sensor", rateLimit(h.opts.RateLimit, time.Minute), h.toggleSensor)
	router.POST("/pdf", authed, h.generatePDF)
	router.GET("/users", authed, admin, h.listUsers)
	router.POST("/register", authed, admin, h.register)
	router.POST("/delete", authed, admin, h.deleteUser)
	if h.realtime != nil {
		router.GET("/ws", h.requireSocketAuth(), gin.WrapH(h.realtime))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type toggleRequest struct {
	RFID string `json:"rfid"`
}

type pdfRequest struct {
	Status string `json:"status"`
	Bulan  int    `json:"bulan"`
	Tahun  int    `json:"tahun"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RFID     string `json:"rfid"`
	Fullname string `json:"fullname"`
}

type deleteRequest struct {
	ID int64 `json:"id"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadPayload, nil)
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) {
			fail(c, http.StatusBadRequest, msgBadLogin, nil)
			return
		}
		h.failErr(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user logged in")
	ok(c, msgLoginOK, TokenResponse{Token: token})
}

func (h *Handler) me(c *gin.Context) {
	anonymous := MeResponse{Authenticated: false, User: nil}

	user, err := h.users.Authenticate(c.Request.Context(), bearerToken(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			fail(c, http.StatusUnauthorized, msgInvalidToken, anonymous)
			return
		}
		h.logger.Errorf("resolve identity: %v", err)
		fail(c, http.StatusInternalServerError, msgInternal, anonymous)
		return
	}

	ok(c, msgUserFetched, MeResponse{Authenticated: true, User: userToResponse(user)})
}

// listSensors also republishes the snapshot so every open viewer refreshes with the caller.
func (h *Handler) listSensors(c *gin.Context) {
	events, err := h.gate.Broadcast(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, msgSensorFetched, sensorsToResponse(events))
}

func (h *Handler) toggleSensor(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadPayload, nil)
		return
	}

	result, err := h.gate.Toggle(c.Request.Context(), req.RFID, h.opts.Now())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) {
			fail(c, http.StatusBadRequest, msgBadRFID, nil)
			return
		}
		h.failErr(c, err)
		return
	}

	event := result.Event
	ok(c, msgSensorAdded, ToggleResponse{
		ID:     event.ID,
		Status: event.Status.Label(),
		Time:   event.CreatedAt,
		User: EventUserResponse{
			ID:       event.Owner.ID,
			Fullname: event.Owner.Fullname,
			RFID:     event.Owner.RFID,
		},
		Sensors: sensorsToResponse(result.Snapshot),
	})
}

func (h *Handler) generatePDF(c *gin.Context) {
	var req pdfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadPayload, nil)
		return
	}

	doc, err := h.reports.Generate(c.Request.Context(), service.ReportRequest{
		Status: req.Status,
		Month:  req.Bulan,
		Year:   req.Tahun,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": identity(c).ID,
		"rows":    doc.Rows,
	}).Infof("report %s generated", doc.Filename)
	ok(c, msgPDFCreated, PDFResponse{
		Filename: doc.Filename,
		Path:     doc.Path,
		Base64:   "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(doc.Content),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}

	resp := UsersResponse{Users: make([]UserResponse, len(users))}
	for i := range users {
		resp.Users[i] = *userToResponse(&users[i])
	}
	ok(c, msgUserFetched, resp)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadPayload, nil)
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		RFID:     req.RFID,
		Fullname: req.Fullname,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	ok(c, msgUserCreated, userToResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadPayload, nil)
		return
	}

	if err := h.users.Delete(c.Request.Context(), req.ID); err != nil {
		h.failErr(c, err)
		return
	}

	h.logger.WithField("user_id", req.ID).Info("user deleted")
	ok(c, msgUserDeleted, DeletedResponse{ID: req.ID})
}
