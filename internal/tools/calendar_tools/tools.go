package calendar_tools

import (
	"fmt"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/server"
	"github.com/teemow/calassist/internal/session"
)

// accountClient is the per-account calendar state kept between calls.
type accountClient struct {
	store  *session.MemoryStore
	client *calendar.Client
}

// Clients hands out one calendar.Client per Google account.
type Clients struct {
	sc         *server.ServerContext
	calendarID string

	mu      sync.Mutex
	clients map[string]*accountClient
}

// NewClients creates the per-account client registry. calendarID is the
// initial calendar for every account; empty means the primary calendar.
func NewClients(sc *server.ServerContext, calendarID string) *Clients {
	return &Clients{
		sc:         sc,
		calendarID: calendarID,
		clients:    make(map[string]*accountClient),
	}
}

// ForAccount returns the calendar client for account, creating it on first use.
func (c *Clients) ForAccount(account string) (*calendar.Client, error) {
	ac, err := c.get(account)
	if err != nil {
		return nil, err
	}
	return ac.client, nil
}

// Backend returns the calendar backend for account.
func (c *Clients) Backend(account string) (server.CalendarBackend, error) {
	return c.sc.BackendForAccount(account)
}

// SelectCalendar switches the calendar the account's tools operate on.
func (c *Clients) SelectCalendar(account, calendarID string) error {
	ac, err := c.get(account)
	if err != nil {
		return err
	}
	ac.store.SelectCalendar(calendarID)
	return nil
}

// SelectedCalendar returns the calendar the account's tools operate on
// without creating a client for it.
func (c *Clients) SelectedCalendar(account string) string {
	c.mu.Lock()
	ac, ok := c.clients[account]
	c.mu.Unlock()

	if ok {
		return ac.client.CalendarID()
	}
	if c.calendarID != "" {
		return c.calendarID
	}
	return calendar.DefaultCalendarID
}

func (c *Clients) get(account string) (*accountClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ac, ok := c.clients[account]; ok {
		return ac, nil
	}

	backend, err := c.sc.BackendForAccount(account)
	if err != nil {
		return nil, err
	}

	store := session.NewMemoryStore()
	if c.calendarID != "" {
		store.SelectCalendar(c.calendarID)
	}
	logger := c.sc.Logger().With(logging.Account(account))
	ac := &accountClient{
		store:  store,
		client: calendar.NewClient(backend, store, logger, calendar.WithMetrics(c.sc.Metrics())),
	}
	c.clients[account] = ac
	return ac, nil
}

func (c *Clients) logger() *slog.Logger {
	return c.sc.Logger()
}

// RegisterCalendarTools registers all calendar tools with the MCP server.
// With readOnly set, only the tools that do not modify calendars are registered.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, clients *Clients, readOnly bool) error {
	if err := RegisterEventTools(s, sc, clients, readOnly); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	if err := RegisterCalendarListTools(s, sc, clients); err != nil {
		return fmt.Errorf("failed to register calendar list tools: %w", err)
	}

	return nil
}
