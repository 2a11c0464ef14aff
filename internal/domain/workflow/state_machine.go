// Package workflow define el ciclo de vida de una cotización: estatus, acciones,
// quién puede ejecutarlas y qué se puede editar en cada estatus.
package workflow

import (
	"github.com/jhoicas/cotizaciones-api/internal/domain"
)

// Status es el estatus de una orden de venta.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusSent            Status = "SENT" // en revisión
	StatusAccepted        Status = "ACCEPTED"
	StatusChangeRequested Status = "CHANGE_REQUESTED"
	StatusSold            Status = "SOLD"
	StatusClientRejected  Status = "CLIENT_REJECTED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
)

// Statuses en orden de presentación.
var Statuses = []Status{
	StatusDraft, StatusSent, StatusAccepted, StatusChangeRequested,
	StatusSold, StatusClientRejected, StatusRejected, StatusCancelled,
}

// Valid indica si s es un estatus conocido.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Action es una transición nombrada.
type Action string

const (
	ActionRequestAuth    Action = "request-auth"
	ActionAuthorize      Action = "authorize"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request-changes"
	ActionMarkSold       Action = "mark-sold"
	ActionMarkLost       Action = "mark-lost"
	ActionReEdit         Action = "re-edit"
	ActionCancel         Action = "cancel"
)

// Actions en orden de presentación.
var Actions = []Action{
	ActionRequestAuth, ActionAuthorize, ActionReject, ActionRequestChanges,
	ActionMarkSold, ActionMarkLost, ActionReEdit, ActionCancel,
}

// Actor es el papel de quien ejecuta una acción.
type Actor string

const (
	ActorSales    Actor = "sales"
	ActorReviewer Actor = "reviewer"
	ActorAdmin    Actor = "admin"
)

// satisfies: admin cumple cualquier guarda.
func (a Actor) satisfies(required Actor) bool {
	return a == required || a == ActorAdmin
}

type transitionKey struct {
	from   Status
	action Action
}

type rule struct {
	to    Status
	actor Actor
}

// transitions es la tabla completa; cualquier par (estatus, acción) ausente se rechaza.
var transitions = map[transitionKey]rule{
	{StatusDraft, ActionRequestAuth}:           {StatusSent, ActorSales},
	{StatusChangeRequested, ActionRequestAuth}: {StatusSent, ActorSales},
	{StatusRejected, ActionRequestAuth}:        {StatusSent, ActorSales},
	{StatusSent, ActionAuthorize}:              {StatusAccepted, ActorReviewer},
	{StatusSent, ActionReject}:                 {StatusRejected, ActorReviewer},
	{StatusSent, ActionRequestChanges}:         {StatusChangeRequested, ActorReviewer},
	{StatusAccepted, ActionMarkSold}:           {StatusSold, ActorSales},
	{StatusAccepted, ActionMarkLost}:           {StatusClientRejected, ActorSales},
	{StatusAccepted, ActionReEdit}:             {StatusSent, ActorSales},

	{StatusDraft, ActionCancel}:           {StatusCancelled, ActorAdmin},
	{StatusSent, ActionCancel}:            {StatusCancelled, ActorAdmin},
	{StatusAccepted, ActionCancel}:        {StatusCancelled, ActorAdmin},
	{StatusChangeRequested, ActionCancel}: {StatusCancelled, ActorAdmin},
	{StatusRejected, ActionCancel}:        {StatusCancelled, ActorAdmin},
}

// Next devuelve el estatus destino de aplicar action desde from por actor.
// Pares fuera de la tabla o actores sin permiso devuelven *domain.InvalidTransitionError.
func Next(from Status, action Action, actor Actor) (Status, error) {
	r, ok := transitions[transitionKey{from, action}]
	if !ok || !actor.satisfies(r.actor) {
		return "", &domain.InvalidTransitionError{From: string(from), Action: string(action), Actor: string(actor)}
	}
	return r.to, nil
}

// AvailableActions lista las acciones que actor puede ejecutar desde from.
func AvailableActions(from Status, actor Actor) []Action {
	out := make([]Action, 0, 3)
	for _, a := range Actions {
		if r, ok := transitions[transitionKey{from, a}]; ok && actor.satisfies(r.actor) {
			out = append(out, a)
		}
	}
	return out
}

// IsFinanciallyLocked indica si la orden ya no admite cambios de precio, margen,
// comisión ni cantidades.
func IsFinanciallyLocked(s Status) bool {
	switch s {
	case StatusSold, StatusRejected, StatusClientRejected, StatusCancelled:
		return true
	}
	return false
}
