// Package catalog serves SLA configuration and tickets from a YAML document. It backs local runs
// without Postgres and doubles as the fixture store in tests.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
)

type document struct {
	Priorities []priorityRecord  `yaml:"priorities"`
	Stages     []stageRecord     `yaml:"stages"`
	Expedients []expedientRecord `yaml:"expedients"`
	Tickets    []ticketRecord    `yaml:"tickets"`
}

type priorityRecord struct {
	ID                int64  `yaml:"id"`
	Tenant            string `yaml:"tenant"`
	Service           string `yaml:"service"`
	Name              string `yaml:"name"`
	ResponseMinutes   int    `yaml:"response_minutes"`
	ResolutionMinutes int    `yaml:"resolution_minutes"`
}

type stageRecord struct {
	ID         int64  `yaml:"id"`
	Tenant     string `yaml:"tenant"`
	Service    string `yaml:"service"`
	Name       string `yaml:"name"`
	SLAMinutes int    `yaml:"sla_minutes"`
}

type expedientRecord struct {
	ID       int64  `yaml:"id"`
	Tenant   string `yaml:"tenant"`
	Service  string `yaml:"service"`
	Days     string `yaml:"days"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Position int    `yaml:"position"`
}

type ticketRecord struct {
	ID                 string     `yaml:"id"`
	Tenant             string     `yaml:"tenant"`
	Service            string     `yaml:"service"`
	ExternalKey        string     `yaml:"external_key"`
	Title              string     `yaml:"title"`
	Priority           string     `yaml:"priority"`
	StageID            *int64     `yaml:"stage_id"`
	Stage              string     `yaml:"stage"`
	CreatedAt          time.Time  `yaml:"created_at"`
	FirstRespondedAt   *time.Time `yaml:"first_responded_at"`
	PausedAt           *time.Time `yaml:"paused_at"`
	TotalPausedMinutes int        `yaml:"total_paused_minutes"`
	ClosedAt           *time.Time `yaml:"closed_at"`
}

// Store holds a parsed catalog. Its repository views share one lock and are safe for concurrent
// use.
type Store struct {
	mu         sync.RWMutex
	priorities []domain.Priority
	stages     []domain.ServiceStage
	expedients []domain.ServiceExpedient
	tickets    []domain.Ticket
}

type (
	ticketView    struct{ s *Store }
	priorityView  struct{ s *Store }
	stageView     struct{ s *Store }
	expedientView struct{ s *Store }
)

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketView{s} }

// Priorities returns the priority repository view.
func (s *Store) Priorities() repository.PriorityRepository { return priorityView{s} }

// Stages returns the stage repository view.
func (s *Store) Stages() repository.StageRepository { return stageView{s} }

// Expedients returns the expedient repository view.
func (s *Store) Expedients() repository.ExpedientRepository { return expedientView{s} }

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load reads a catalog file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return store, nil
}

// Parse builds a store from a YAML document.
func Parse(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	s := &Store{}
	for _, p := range doc.Priorities {
		s.priorities = append(s.priorities, domain.Priority{
			ID:                p.ID,
			TenantID:          p.Tenant,
			ServiceID:         p.Service,
			Name:              p.Name,
			ResponseMinutes:   p.ResponseMinutes,
			ResolutionMinutes: p.ResolutionMinutes,
		})
	}
	for _, st := range doc.Stages {
		s.stages = append(s.stages, domain.ServiceStage{
			ID:         st.ID,
			TenantID:   st.Tenant,
			ServiceID:  st.Service,
			Name:       st.Name,
			SLAMinutes: st.SLAMinutes,
		})
	}
	for i, e := range doc.Expedients {
		id := e.ID
		if id == 0 {
			id = int64(i + 1)
		}
		s.expedients = append(s.expedients, domain.ServiceExpedient{
			ID:         id,
			TenantID:   e.Tenant,
			ServiceID:  e.Service,
			DaysOfWeek: e.Days,
			StartTime:  e.Start,
			EndTime:    e.End,
			Position:   e.Position,
		})
	}
	seen := make(map[string]struct{}, len(doc.Tickets))
	for _, t := range doc.Tickets {
		key := t.Tenant + "/" + t.ID
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate ticket %s", key)
		}
		seen[key] = struct{}{}
		s.tickets = append(s.tickets, domain.Ticket{
			ID:                 t.ID,
			TenantID:           t.Tenant,
			ServiceID:          t.Service,
			ExternalKey:        t.ExternalKey,
			Title:              t.Title,
			PriorityName:       t.Priority,
			StageID:            t.StageID,
			StageName:          t.Stage,
			CreatedAt:          t.CreatedAt,
			FirstRespondedAt:   t.FirstRespondedAt,
			PausedAt:           t.PausedAt,
			TotalPausedMinutes: t.TotalPausedMinutes,
			ClosedAt:           t.ClosedAt,
			UpdatedAt:          t.CreatedAt,
		})
	}
	return s, nil
}

func (v ticketView) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for i := range v.s.tickets {
		if v.s.tickets[i].TenantID == tenantID && v.s.tickets[i].ID == id {
			ticket := v.s.tickets[i]
			return &ticket, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// ListOpen pages open tickets oldest first, matching the Postgres ordering.
func (v ticketView) ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	v.s.mu.RLock()
	open := make([]domain.Ticket, 0, len(v.s.tickets))
	for _, t := range v.s.tickets {
		if t.ClosedAt == nil {
			open = append(open, t)
		}
	}
	v.s.mu.RUnlock()

	sort.SliceStable(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	if offset >= len(open) {
		return nil, nil
	}
	end := offset + limit
	if end > len(open) {
		end = len(open)
	}
	return open[offset:end], nil
}

func (v ticketView) UpdatePauseState(ctx context.Context, ticket *domain.Ticket) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i := range v.s.tickets {
		stored := &v.s.tickets[i]
		if stored.TenantID == ticket.TenantID && stored.ID == ticket.ID {
			stored.PausedAt = ticket.PausedAt
			stored.TotalPausedMinutes = ticket.TotalPausedMinutes
			stored.UpdatedAt = time.Now()
			ticket.UpdatedAt = stored.UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (v priorityView) GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.Priority, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, p := range v.s.priorities {
		if p.TenantID == tenantID && p.ServiceID == serviceID && p.Name == name {
			priority := p
			return &priority, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (v stageView) GetByID(ctx context.Context, tenantID, serviceID string, id int64) (*domain.ServiceStage, error) {
	return v.find(func(st domain.ServiceStage) bool {
		return st.TenantID == tenantID && st.ServiceID == serviceID && st.ID == id
	})
}

func (v stageView) GetByName(ctx context.Context, tenantID, serviceID, name string) (*domain.ServiceStage, error) {
	return v.find(func(st domain.ServiceStage) bool {
		return st.TenantID == tenantID && st.ServiceID == serviceID && st.Name == name
	})
}

func (v stageView) find(match func(domain.ServiceStage) bool) (*domain.ServiceStage, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, st := range v.s.stages {
		if match(st) {
			stage := st
			return &stage, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (v expedientView) ListByService(ctx context.Context, tenantID, serviceID string) ([]domain.ServiceExpedient, error) {
	v.s.mu.RLock()
	var result []domain.ServiceExpedient
	for _, e := range v.s.expedients {
		if e.TenantID == tenantID && e.ServiceID == serviceID {
			result = append(result, e)
		}
	}
	v.s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Position == result[j].Position {
			return result[i].ID < result[j].ID
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}
