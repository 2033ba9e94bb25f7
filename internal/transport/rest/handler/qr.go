package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/service"
)

const qrSize = 320

// QRHandler renders join links as PNG QR codes.
type QRHandler struct {
	gameSvc *service.GameService
	baseURL string
	debug   bool
}

// NewQRHandler creates a QR handler. An empty baseURL derives the link from
// the request host.
func NewQRHandler(gameSvc *service.GameService, baseURL string, debug bool) *QRHandler {
	return &QRHandler{gameSvc: gameSvc, baseURL: strings.TrimRight(baseURL, "/"), debug: debug}
}

// JoinURL returns the link players open to join code.
func (h *QRHandler) JoinURL(r *http.Request, code string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + code
}

// Join handles GET /v1/rooms/{code}/qr.png
//
//	@Summary	QR code for the room's join link
//	@Tags		rooms
//	@Produce	png
//	@Param		code	path	string	true	"room code"
//	@Success	200
//	@Failure	404	{object}	apierr.Envelope
//	@Router		/rooms/{code}/qr.png [get]
func (h *QRHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	// Only rooms that still exist get a code.
	if _, err := h.gameSvc.GetState(r.Context(), code, "", true); err != nil {
		writeError(w, err, h.debug)
		return
	}

	png, err := qrcode.Encode(h.JoinURL(r, code), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, game.Internal(err), h.debug)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
