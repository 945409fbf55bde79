// Package webhook exposes the HTTP surface Facebook calls: the GET
// verification handshake and the POST event receiver.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/fbrelay/pkg/bus"
	"github.com/tinyland-inc/fbrelay/pkg/logger"
	"github.com/tinyland-inc/fbrelay/pkg/messenger"
)

const maxBodyBytes = 1 << 20

// Server receives Messenger webhook traffic and hands user messages to the
// bus. Events are acknowledged immediately; processing happens after the 200
// so Facebook never sees Engine latency.
type Server struct {
	bus         *bus.MessageBus
	verifyToken string
	appSecret   string
	httpServer  *http.Server
}

func NewServer(b *bus.MessageBus, addr, verifyToken, appSecret string) *Server {
	s := &Server{
		bus:         b,
		verifyToken: verifyToken,
		appSecret:   appSecret,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleVerify(w, r)
		case http.MethodPost:
			s.handleEvent(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/healthz", requireGet(s.handleHealth))
	mux.HandleFunc("/readyz", requireGet(s.handleReady))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// requireGet rejects non-GET methods the way method-prefixed ServeMux
// patterns would, which Go 1.21's ServeMux does not support.
func requireGet(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// Handler exposes the route table, mainly for tests that want to serve it on
// an ephemeral port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called. It returns http.ErrServerClosed on a
// clean shutdown, any other error on failure to bind or serve.
func (s *Server) Start() error {
	logger.InfoCF("webhook", "Listening", map[string]any{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleVerify answers the subscription handshake: echo hub.challenge when
// the token matches. A mismatch still answers 200 with an error string, which
// fails Facebook's check without leaking whether the endpoint exists.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.verify_token") == s.verifyToken {
		fmt.Fprint(w, q.Get("hub.challenge"))
		return
	}
	logger.WarnC("webhook", "Verification attempt with wrong token")
	fmt.Fprint(w, "Error, wrong validation token")
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if s.appSecret != "" && !s.validSignature(r.Header.Get("X-Hub-Signature-256"), body) {
		logger.WarnC("webhook", "Rejected event with bad signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var event messenger.Event
	if err := json.Unmarshal(body, &event); err != nil {
		logger.WarnCF("webhook", "Dropping unparseable event", map[string]any{"error": err.Error()})
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Acknowledge before processing; Facebook retries on anything slow.
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")

	go s.publishEvent(event)
}

func (s *Server) publishEvent(event messenger.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("webhook", "Panic while publishing event", map[string]any{"panic": rec})
		}
	}()

	if event.Object != "page" {
		logger.DebugCF("webhook", "Ignoring non-page event", map[string]any{"object": event.Object})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if !m.IsUserMessage() {
				continue
			}
			// Attachment-only messages have nothing to say to the Engine.
			if m.Message.Text == "" {
				logger.DebugCF("webhook", "Ignoring message without text", map[string]any{
					"sender":  m.Sender.ID,
					"message": m.Message.MID,
				})
				continue
			}
			msg := bus.InboundMessage{
				SenderID:  m.Sender.ID,
				PageID:    m.Recipient.ID,
				MessageID: m.Message.MID,
				Text:      m.Message.Text,
				RequestID: uuid.NewString(),
			}
			// One failed publish must not take its batch siblings with it.
			if err := s.bus.PublishInbound(ctx, msg); err != nil {
				logger.ErrorCF("webhook", "Inbound publish failed", map[string]any{
					"sender": msg.SenderID,
					"error":  err.Error(),
				})
				continue
			}
			logger.DebugCF("webhook", "Queued user message", map[string]any{
				"sender":     msg.SenderID,
				"request_id": msg.RequestID,
			})
		}
	}
}

// validSignature checks the sha256= HMAC Facebook signs event bodies with.
func (s *Server) validSignature(header string, body []byte) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header[len(prefix):]), []byte(expected))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ready")
}
