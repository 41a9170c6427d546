package shared

import "time"

// BaseAggregateRoot carries what every aggregate shares: the optimistic-lock
// version, timestamps and the events raised since the last publish.
// Aggregates keep their own natural key.
type BaseAggregateRoot struct {
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	pending []DomainEvent `gorm:"-"`
	dirty   bool          `gorm:"-"`
}

func NewBaseAggregateRoot(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{Version: 1, CreatedAt: now, UpdatedAt: now}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// Touch bumps UpdatedAt and, once per unit of work, the version. Several
// changes made before the next save persist as one version step, so
// repositories can check the stored row against Version-1.
func (a *BaseAggregateRoot) Touch(now time.Time) {
	a.UpdatedAt = now
	if !a.dirty {
		a.Version++
		a.dirty = true
	}
}

// HasChanges reports whether Touch ran since the aggregate was loaded or saved.
func (a *BaseAggregateRoot) HasChanges() bool { return a.dirty }

// MarkPersisted ends the unit of work. Repositories call it after a save.
func (a *BaseAggregateRoot) MarkPersisted() { a.dirty = false }

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the raised events without consuming them.
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent { return a.pending }

// PullEvents returns the raised events and forgets them.
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
