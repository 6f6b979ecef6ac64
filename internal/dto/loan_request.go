package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidBookID is returned when no usable book reference is present.
var ErrInvalidBookID = errors.New("book id must be a positive integer")

// FlexibleID accepts a JSON number or a numeric string.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// CreateLoanRequest is the public submission payload. Legacy form field names
// are accepted next to the current ones.
type CreateLoanRequest struct {
	BookID     FlexibleID `json:"bookId"`
	LibroID    FlexibleID `json:"libroId"`
	BookIDAlt  FlexibleID `json:"book_id"`
	BookTitle  string     `json:"bookTitle"`
	Nombre     string     `json:"nombre"`
	Apellido   string     `json:"apellido"`
	Email      string     `json:"email"`
	Rut        string     `json:"rut"`
	Celular    string     `json:"celular"`
	Direccion  string     `json:"direccion"`
	FotoID     string     `json:"fotoId"`
	Name       string     `json:"requesterName"`
	ReqEmail   string     `json:"requesterEmail"`
	ReqRut     string     `json:"requesterRut"`
	ReqPhone   string     `json:"requesterPhone"`
	ReqAddress string     `json:"requesterAddress"`
	ReqPhoto   string     `json:"requesterIdPhoto"`
	AddressAlt string     `json:"requester_address"`
	PhotoAlt   string     `json:"requester_id_photo"`
}

// ResolvedBookID returns the first provided book reference as a positive id.
func (r CreateLoanRequest) ResolvedBookID() (int64, error) {
	raw := firstNonEmpty(string(r.BookID), string(r.LibroID), string(r.BookIDAlt))
	if raw == "" {
		return 0, ErrInvalidBookID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidBookID
	}
	return id, nil
}

// RequesterName composes the display name, empty when none was given.
func (r CreateLoanRequest) RequesterName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{r.Nombre, r.Apellido} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// RequesterEmail prefers requesterEmail over email.
func (r CreateLoanRequest) RequesterEmail() string {
	return firstNonEmpty(r.ReqEmail, r.Email)
}

// RequesterRut prefers requesterRut over rut.
func (r CreateLoanRequest) RequesterRut() string {
	return firstNonEmpty(r.ReqRut, r.Rut)
}

// RequesterPhone prefers requesterPhone over celular.
func (r CreateLoanRequest) RequesterPhone() string {
	return firstNonEmpty(r.ReqPhone, r.Celular)
}

// RequesterAddress returns the first provided address field.
func (r CreateLoanRequest) RequesterAddress() string {
	return firstNonEmpty(r.ReqAddress, r.Direccion, r.AddressAlt)
}

// RequesterIDPhoto returns the first provided id photo reference.
func (r CreateLoanRequest) RequesterIDPhoto() string {
	return firstNonEmpty(r.ReqPhoto, r.FotoID, r.PhotoAlt)
}

// TransitionLoanRequest is the admin status change payload.
type TransitionLoanRequest struct {
	Status     string  `json:"status"`
	DueDate    *string `json:"due_date"`
	DueDateAlt *string `json:"dueDate"`
}

// ResolvedDueDate returns the due date when one was sent.
func (r TransitionLoanRequest) ResolvedDueDate() (string, bool) {
	for _, v := range []*string{r.DueDate, r.DueDateAlt} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v), true
		}
	}
	return "", false
}

// LoanRequestEnvelope wraps a single request in API responses.
type LoanRequestEnvelope struct {
	OK      bool        `json:"ok"`
	Request interface{} `json:"request"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
