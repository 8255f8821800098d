package types

// HeaderIdentifier is the pseudo section identifier used when the header block changes
const HeaderIdentifier = "cv_header"

// CVHeader holds the candidate's name, title and nullable contact fields
type CVHeader struct {
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
	LinkedIn *string `json:"linkedin"`
	GitHub   *string `json:"github"`
	Website  *string `json:"website"`
}

// PartialCVHeader carries header fields found by free-text parsing.
// A nil field means the parser found nothing for it and the current value must be kept.
type PartialCVHeader struct {
	Name     *string
	Title    *string
	Email    *string
	Phone    *string
	Location *string
	LinkedIn *string
	GitHub   *string
	Website  *string
}

// IsEmpty reports whether no field was found.
func (p PartialCVHeader) IsEmpty() bool {
	return p.Name == nil && p.Title == nil && p.Email == nil && p.Phone == nil &&
		p.Location == nil && p.LinkedIn == nil && p.GitHub == nil && p.Website == nil
}

// Merge returns a copy of h with every non-nil field of p applied.
func (h CVHeader) Merge(p PartialCVHeader) CVHeader {
	out := h.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	setIfPresent(&out.Email, p.Email)
	setIfPresent(&out.Phone, p.Phone)
	setIfPresent(&out.Location, p.Location)
	setIfPresent(&out.LinkedIn, p.LinkedIn)
	setIfPresent(&out.GitHub, p.GitHub)
	setIfPresent(&out.Website, p.Website)
	return out
}

// Clone returns a copy that shares no pointers with h.
func (h CVHeader) Clone() CVHeader {
	return CVHeader{
		Name:     h.Name,
		Title:    h.Title,
		Email:    cloneStringPtr(h.Email),
		Phone:    cloneStringPtr(h.Phone),
		Location: cloneStringPtr(h.Location),
		LinkedIn: cloneStringPtr(h.LinkedIn),
		GitHub:   cloneStringPtr(h.GitHub),
		Website:  cloneStringPtr(h.Website),
	}
}

// Equal compares two headers field by field, treating nil and set fields as different.
func (h CVHeader) Equal(other CVHeader) bool {
	return h.Name == other.Name &&
		h.Title == other.Title &&
		stringPtrEqual(h.Email, other.Email) &&
		stringPtrEqual(h.Phone, other.Phone) &&
		stringPtrEqual(h.Location, other.Location) &&
		stringPtrEqual(h.LinkedIn, other.LinkedIn) &&
		stringPtrEqual(h.GitHub, other.GitHub) &&
		stringPtrEqual(h.Website, other.Website)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func setIfPresent(dst **string, value *string) {
	if value != nil {
		v := *value
		*dst = &v
	}
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
