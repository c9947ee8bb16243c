// internal/server/server.go
package server

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"

	pipeerrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/live"
	"jobtrack/internal/models"
	"jobtrack/internal/reconciler"
	"jobtrack/internal/store"
)

// DemoUser owns every manually submitted record. The manual endpoint has
// no authentication; all writes land on this single account.
const DemoUser = "name@example.com"

// jobStatusSchema validates the manual submission body. Extra fields
// pass through unchecked; only presence and type of the four required
// fields is enforced.
const jobStatusSchema = `{
	"type": "object",
	"required": ["company", "date", "status", "user_email"],
	"properties": {
		"company":    {"type": "string", "minLength": 1},
		"date":       {"type": "string"},
		"status":     {"type": "string"},
		"user_email": {"type": "string"}
	}
}`

// Server exposes the manual submission API, the batch email ingestion
// endpoint and the live websocket channel on one fiber app.
type Server struct {
	app    *fiber.App
	apps   *store.Apps
	hub    *live.Hub
	schema *gojsonschema.Schema
	logger logger.Logger
}

func New(apps *store.Apps, hub *live.Hub, log logger.Logger) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(jobStatusSchema))
	if err != nil {
		return nil, err
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		apps:   apps,
		hub:    hub,
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"component": "server"}),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Post("/jobstatuses", s.handleJobStatus)
	s.app.Post("/emails", s.handleEmails)
	s.app.Get("/users", s.handleUsers)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWS))
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type jobStatusRequest struct {
	Company   string `json:"company"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	UserEmail string `json:"user_email"`
}

// handleJobStatus accepts a manual application entry and merges it into
// the demo user's list, overwriting any existing record for the same
// company. The response body is the updated list.
func (s *Server) handleJobStatus(c *fiber.Ctx) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(c.Body()))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		verr := pipeerrors.NewValidationError(strings.Join(details, "; "))
		s.logger.Warn("manual entry rejected", map[string]interface{}{"error": verr.Error(), "details": verr.Details})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "missing or invalid fields",
			"details": details,
		})
	}

	var req jobStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	record := models.ApplicationRecord{
		Date:         req.Date,
		Company:      req.Company,
		CompanyEmail: req.UserEmail,
		Status:       models.Status(req.Status),
	}
	records, err := s.apps.Update(c.Context(), DemoUser, func(rs []models.ApplicationRecord) []models.ApplicationRecord {
		return reconciler.Upsert(rs, record)
	})
	if err != nil {
		s.logger.Error("manual entry persist failed", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store job status",
		})
	}

	s.hub.BroadcastApplications(DemoUser, records)
	s.logger.Info("manual entry stored", map[string]interface{}{
		"company": req.Company, "status": req.Status,
	})
	return c.Status(fiber.StatusOK).JSON(records)
}

// handleEmails stores an arbitrary email batch and pushes it verbatim to
// every live client. The payload shape is opaque to the server.
func (s *Server) handleEmails(c *fiber.Ctx) error {
	var payload interface{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	s.hub.SetBatch(payload)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Emails stored successfully",
	})
}

// handleUsers lists the known accounts. With no registration flow, the
// demo account is the only one.
func (s *Server) handleUsers(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users": []fiber.Map{
			{"name": "Demo User", "email": DemoUser},
		},
	})
}

// writeWait bounds each websocket write so a client with a full send
// buffer fails fast instead of parking the hub's write loop forever.
const writeWait = 10 * time.Second

// wsConn serializes writes; the replay on connect and the hub's write
// loop can both write, and the underlying conn is not write-safe.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(v)
}

// handleWS registers the connection with the hub, replays the last email
// batch if one exists, then blocks reading until the client goes away.
func (s *Server) handleWS(c *websocket.Conn) {
	conn := &wsConn{conn: c}
	id := s.hub.Add(conn)
	defer s.hub.Remove(id)

	if last := s.hub.LastBatch(); last != nil {
		if err := conn.WriteJSON(live.Envelope{Event: live.EventEmailUpdate, Payload: last}); err != nil {
			return
		}
	}

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
