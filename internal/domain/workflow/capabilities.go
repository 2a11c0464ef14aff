package workflow

import "github.com/jhoicas/cotizaciones-api/internal/domain"

// Operation es una operación de edición sujeta a permisos por estatus.
type Operation string

const (
	// OpEditPricing: márgenes, comisión, precios, cantidades, costos y alta/baja de partidas.
	OpEditPricing Operation = "edit-pricing"
	// OpEditDocument: notas, condiciones, nombres de producto, fechas y datos del proyecto.
	OpEditDocument Operation = "edit-document"
	OpDelete       Operation = "delete"
)

var permissions = map[Status]map[Operation][]Actor{
	StatusDraft: {
		OpEditPricing:  {ActorSales},
		OpEditDocument: {ActorSales},
		OpDelete:       {ActorSales},
	},
	StatusChangeRequested: {
		OpEditPricing:  {ActorSales},
		OpEditDocument: {ActorSales},
		OpDelete:       {ActorSales},
	},
	StatusSent: {
		OpEditPricing:  {ActorReviewer},
		OpEditDocument: {ActorReviewer},
	},
	// Editar precios en ACCEPTED regresa la orden a revisión (re-edit).
	StatusAccepted: {
		OpEditPricing:  {ActorSales},
		OpEditDocument: {ActorSales},
	},
	StatusRejected: {
		OpEditDocument: {ActorSales, ActorReviewer},
		OpDelete:       {ActorSales},
	},
	StatusSold: {
		OpEditDocument: {ActorSales, ActorReviewer},
	},
	StatusClientRejected: {
		OpEditDocument: {ActorSales, ActorReviewer},
		OpDelete:       {ActorSales},
	},
	StatusCancelled: {
		OpEditDocument: {ActorSales, ActorReviewer},
		OpDelete:       {ActorSales},
	},
}

// Can indica si actor puede ejecutar op sobre una orden en estatus s.
func Can(s Status, op Operation, actor Actor) bool {
	for _, required := range permissions[s][op] {
		if actor.satisfies(required) {
			return true
		}
	}
	return false
}

// Require es Can como error.
func Require(s Status, op Operation, actor Actor) error {
	if !Can(s, op, actor) {
		return &domain.InvalidTransitionError{From: string(s), Action: string(op), Actor: string(actor)}
	}
	return nil
}

// RequiresReauthorization indica si un cambio de precios en s debe disparar re-edit.
func RequiresReauthorization(s Status) bool {
	return s == StatusAccepted
}

// Capabilities resume lo que la interfaz debe habilitar para un actor.
type Capabilities struct {
	CanEditPricing  bool     `json:"can_edit_pricing"`
	CanEditDocument bool     `json:"can_edit_document"`
	CanDelete       bool     `json:"can_delete"`
	ReadOnly        bool     `json:"read_only"`
	Actions         []Action `json:"actions"`
}

// CapabilitiesFor calcula las capacidades de actor sobre una orden en estatus s.
func CapabilitiesFor(s Status, actor Actor) Capabilities {
	c := Capabilities{
		CanEditPricing:  Can(s, OpEditPricing, actor),
		CanEditDocument: Can(s, OpEditDocument, actor),
		CanDelete:       Can(s, OpDelete, actor),
		Actions:         AvailableActions(s, actor),
	}
	c.ReadOnly = !c.CanEditPricing && !c.CanEditDocument
	return c
}
