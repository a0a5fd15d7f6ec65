package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

// ServiceStage is a workflow stage with its own SLA budget.
type ServiceStage struct {
	ID         int64
	TenantID   string
	ServiceID  string
	Name       string
	SLAMinutes int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Budget converts the stage into an engine budget.
func (s *ServiceStage) Budget() *sla.StageBudget {
	if s == nil {
		return nil
	}
	return &sla.StageBudget{Minutes: s.SLAMinutes}
}

// StageRef identifies a stage either by id or by its legacy name.
type StageRef struct {
	id     int64
	name   string
	byName bool
}

// StageByID references a stage by numeric id.
func StageByID(id int64) StageRef {
	return StageRef{id: id}
}

// StageByName references a stage by name.
func StageByName(name string) StageRef {
	return StageRef{name: strings.TrimSpace(name), byName: true}
}

// ParseStageRef treats numeric strings as ids and anything else as a name.
func ParseStageRef(raw string) StageRef {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return StageByID(id)
	}
	return StageByName(raw)
}

// ID returns the id and true when the reference is id-based.
func (r StageRef) ID() (int64, bool) {
	return r.id, !r.byName
}

// Name returns the name and true when the reference is name-based.
func (r StageRef) Name() (string, bool) {
	return r.name, r.byName
}

func (r StageRef) String() string {
	if r.byName {
		return "name:" + r.name
	}
	return "id:" + strconv.FormatInt(r.id, 10)
}
