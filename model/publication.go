package model

import (
	"strconv"
)

const (
	UnknownTitle   = "Untitled"
	UnknownAuthors = "Unknown Authors"
	UnknownJournal = "Unknown Journal"
)

// PublicationYear is a publication year, UnknownYear when the record has none
type PublicationYear int

const UnknownYear PublicationYear = 0

func (y PublicationYear) Known() bool {
	return y > 0
}

func (y PublicationYear) String() string {
	if !y.Known() {
		return "N/A"
	}
	return strconv.Itoa(int(y))
}

// MarshalJSON writes known years as numbers and unknown ones as "N/A"
func (y PublicationYear) MarshalJSON() ([]byte, error) {
	if !y.Known() {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.Itoa(int(y))), nil
}

func (y *PublicationYear) UnmarshalJSON(data []byte) error {
	value, err := strconv.Atoi(string(data))
	if err != nil || value <= 0 {
		*y = UnknownYear
		return nil
	}

	*y = PublicationYear(value)
	return nil
}

// Publication is the normalized bibliographic record resolved from a DOI
type Publication struct {
	Title    string          `json:"title"`
	Authors  string          `json:"authors"`
	Journal  string          `json:"journal"`
	Year     PublicationYear `json:"year"`
	DOI      string          `json:"doi"`
	URL      string          `json:"url"`
	Abstract *string         `json:"abstract,omitempty"`
}
