package models

import (
	"time"
)

// Role distinguishes the two kinds of accounts.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// UserRecord represents a user account. Stored as `user:<email>`.
// The credential lives under a separate `auth:<email>` key and is never part of this record.
type UserRecord struct {
	FullName      string    `json:"fullName"`
	NationalID    string    `json:"nationalId"`
	Email         string    `json:"email"`                 // Unique, partitions every user-scoped key
	MedicalCode   string    `json:"medicalCode,omitempty"` // Doctors only
	PhoneNumber   string    `json:"phoneNumber"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
}

// EmailMessage is a message produced by the mock messaging service.
// Appended to `emails:<to>` and never mutated afterwards.
type EmailMessage struct {
	ID               string    `json:"id"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body"`
	HTML             string    `json:"html,omitempty"`
	SentAt           time.Time `json:"sentAt"`
	VerificationCode string    `json:"verificationCode,omitempty"`
	VerificationLink string    `json:"verificationLink,omitempty"`
}

// AppointmentStatus is the doctor-view lifecycle of an appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked consultation as seen by a doctor.
type Appointment struct {
	ID        int               `json:"id"`
	Patient   string            `json:"patient"`
	Condition string            `json:"condition"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Status    AppointmentStatus `json:"status"`
	HasPaid   bool              `json:"hasPaid"`
	Amount    float64           `json:"amount"`
}

// SlotStatus is the patient-facing availability of a doctor slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotCancelled SlotStatus = "cancelled"
)

// DoctorSlot is one entry of the doctor listing a patient books from.
type DoctorSlot struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Specialty string     `json:"specialty"`
	Rating    float64    `json:"rating"`
	Fee       float64    `json:"fee"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Image     string     `json:"image,omitempty"`
	Status    SlotStatus `json:"status"`
}

// AppointmentType is how the consultation takes place.
type AppointmentType string

const (
	AppointmentOnline   AppointmentType = "online"
	AppointmentInPerson AppointmentType = "in-person"
)

// Booking is created when a patient books a slot and completed by payment.
type Booking struct {
	ID          string          `json:"id"` // UUID, dashless
	SlotID      int             `json:"slotId"`
	DoctorName  string          `json:"doctorName"`
	Specialty   string          `json:"specialty"`
	Date        string          `json:"date"`
	Month       string          `json:"month"`
	Time        string          `json:"time"`
	Type        AppointmentType `json:"type"`
	Reason      string          `json:"reason"`
	DoctorFee   float64         `json:"doctorFee"`
	PlatformFee float64         `json:"platformFee"`
	TotalFee    float64         `json:"totalFee"`
	Paid        bool            `json:"paid"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ConversationStatus is the tab a conversation is listed under.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is the preview row of a chat thread.
type Conversation struct {
	ID      int                `json:"id"`
	Name    string             `json:"name"` // The counterpart
	Preview string             `json:"preview"`
	Time    string             `json:"time"`
	Unread  bool               `json:"unread"`
	Avatar  string             `json:"avatar,omitempty"`
	Status  ConversationStatus `json:"status"`
}

// SenderRole identifies who wrote a chat message.
type SenderRole string

const (
	SenderDoctor  SenderRole = "doctor"
	SenderPatient SenderRole = "patient"
)

// ChatMessage is a single message within a conversation.
type ChatMessage struct {
	ID     int        `json:"id"`
	Sender SenderRole `json:"sender"`
	Text   string     `json:"text"`
	Time   string     `json:"time"`
}
