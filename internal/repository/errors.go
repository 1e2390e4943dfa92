// Package repository implements raw-SQL persistence for the tour
// reservation system. This file defines sentinel errors shared across
// repositories so handlers can map failure modes to HTTP responses
// without inspecting driver errors.
package repository

import "errors"

// ErrInsufficientCapacity is returned when a departure does not have
// enough free seats for the requested passenger count. It is raised from
// inside the reservation transaction, so a booking that loses the race
// for the last seats fails atomically. Handlers translate it into 409.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed because
// of dependent state, such as deleting a departure that still holds
// reserved seats. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrTourNotFound indicates the tour does not exist.
var ErrTourNotFound = errors.New("tour not found")

// ErrDepartureNotFound indicates the departure does not exist.
var ErrDepartureNotFound = errors.New("departure not found")

// ErrReservationNotFound indicates the reservation does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrRuleNotFound indicates the reminder rule does not exist.
var ErrRuleNotFound = errors.New("reminder rule not found")

// ErrInstallmentNotFound indicates the payment installment does not exist.
var ErrInstallmentNotFound = errors.New("installment not found")
