package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gatelog/internal/service"
)

const (
	msgHello             = "Hello"
	msgLoginOK           = "Berhasil login"
	msgBadLogin          = "Username dan password salah"
	msgInvalidToken      = "Token tidak valid"
	msgUserFetched       = "Berhasil mengambil data user"
	msgSensorFetched     = "Berhasil mengambil data sensor"
	msgSensorAdded       = "Berhasil menambah data"
	msgBadRFID           = "RFID salah"
	msgNight             = "Waktu sudah malam"
	msgPDFCreated        = "Berhasil membuat PDF"
	msgUserCreated       = "Berhasil membuat user"
	msgUserExists        = "User sudah ada"
	msgUserDeleted       = "Berhasil menghapus user"
	msgUserMissing       = "User tidak ada"
	msgBadPayload        = "Format data tidak valid"
	msgTooManyRequests   = "Terlalu banyak permintaan, coba lagi nanti"
	msgInternal          = "Terjadi kesalahan pada server"
	msgRouteNotAvailable = "Halaman tidak ditemukan"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Data: data})
}

// failErr maps a service error to its status and message. Errors without a mapping
// are logged and reported as a redacted 500.
func (h *Handler) failErr(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message, nil)
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, msgInvalidToken, nil)
	case errors.Is(err, service.ErrConflict):
		fail(c, http.StatusBadRequest, msgUserExists, nil)
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusBadRequest, msgUserMissing, nil)
	case errors.Is(err, service.ErrOutOfWindow):
		c.JSON(http.StatusOK, Envelope{Success: false, Message: msgNight, Data: nil})
	default:
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
		fail(c, http.StatusInternalServerError, msgInternal, nil)
	}
}
