package factura

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/utils"
)

// Session holds everything scoped to one operator's editing session: the
// selected client, accumulated line items, the last-fetched catalog tables and
// the last rendered receipt. There is exactly one writer (the session's own
// request flow), so the fields themselves need no locking.
type Session struct {
	Id        string
	Username  string
	CreatedAt time.Time

	Client   *models.Client
	Items    []models.LineItem
	Clients  []models.Client
	Products []models.Product
	Invoices []models.Invoice

	LastPDF    []byte
	LastReport *ResolutionReport
}

// ResetCatalog drops cached tables and the current selection but keeps the
// session identity. Used by the explicit refresh action.
func (s *Session) ResetCatalog() {
	s.Client = nil
	s.Clients = nil
	s.Products = nil
	s.Invoices = nil
	s.Items = nil
	s.LastReport = nil
}

// ClearItems drops the accumulated line items, as happens after a successful
// submission or an explicit clear.
func (s *Session) ClearItems() {
	s.Items = nil
}

// Totals recomputes from the current items on every call; nothing is cached.
func (s *Session) Totals() models.Totals {
	return models.CalculateTotals(s.Items)
}

// SessionRegistry maps session ids to live sessions. The registry map is the
// only thing shared across requests, hence the mutex.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

var registry = &SessionRegistry{sessions: make(map[string]*Session)}

func Sessions() *SessionRegistry {
	return registry
}

func (r *SessionRegistry) Create(username string) *Session {
	session := &Session{
		Id:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.sessions[session.Id] = session
	r.mu.Unlock()
	return session
}

func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, utils.ErrorSessionExpired
	}
	return session, nil
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
