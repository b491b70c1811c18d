// Package domain defines the records cached by firmcore, the persistence and
// authentication capabilities the core consumes, and the error taxonomy shared
// by every layer.
package domain

import "fmt"

// EntityType identifies the collection a record belongs to.
type EntityType string

// Supported entity type identifiers used in errors and log fields.
const (
	// EntityClient identifies a client record.
	EntityClient EntityType = "client"
	// EntityEmployee identifies an employee record.
	EntityEmployee EntityType = "employee"
)

// Keyed is implemented by any record stored in an ordered index. The key is
// unique within the record's collection and is assigned by the persistent
// store, never by the index.
type Keyed interface {
	Key() int
}

// ServiceCode enumerates the service a client has selected.
type ServiceCode int

// Service selections. Numeric values match the codes persisted by existing
// deployments.
const (
	ServiceUnset      ServiceCode = 0
	ServiceBrokerage  ServiceCode = 1
	ServiceRetirement ServiceCode = 2
)

// Valid reports whether the code names a selectable service.
func (s ServiceCode) Valid() bool {
	return s == ServiceBrokerage || s == ServiceRetirement
}

func (s ServiceCode) String() string {
	switch s {
	case ServiceUnset:
		return "unset"
	case ServiceBrokerage:
		return "brokerage"
	case ServiceRetirement:
		return "retirement"
	default:
		return fmt.Sprintf("service(%d)", int(s))
	}
}

// Client is a firm customer assigned to exactly one employee.
type Client struct {
	ID         int         `json:"client_id"`
	Name       string      `json:"client_name"`
	Service    ServiceCode `json:"client_service"`
	EmployeeID int         `json:"asn_employee_id"`
}

// Key implements Keyed.
func (c Client) Key() int { return c.ID }

// Employee is a firm employee. PasswordHash is an opaque encoded credential.
type Employee struct {
	ID           int    `json:"employee_id"`
	Name         string `json:"employee_name"`
	PasswordHash string `json:"hashed_password"`
}

// Key implements Keyed.
func (e Employee) Key() int { return e.ID }
