package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PartySide decides whether a scheme scopes customers or suppliers.
type PartySide string

const (
	PartySideSelling PartySide = "Selling"
	PartySideBuying  PartySide = "Buying"
)

func (t *PartySide) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("party side must be string")
	}
	switch str {
	case "Selling":
		*t = PartySideSelling
	case "Buying":
		*t = PartySideBuying
	default:
		return errors.New("invalid party side")
	}
	return nil
}

// ApplyOn is the scheme's item scope mode. The two modes are mutually
// exclusive: a scheme declares item codes or item groups, never both.
type ApplyOn string

const (
	ApplyOnItemCode  ApplyOn = "ItemCode"
	ApplyOnItemGroup ApplyOn = "ItemGroup"
)

func (t *ApplyOn) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("apply on must be string")
	}
	switch str {
	case "ItemCode":
		*t = ApplyOnItemCode
	case "ItemGroup":
		*t = ApplyOnItemGroup
	default:
		return errors.New("invalid apply on")
	}
	return nil
}

type PromoQualification string

const (
	PromoQualificationMinimumAmount   PromoQualification = "MinimumAmount"
	PromoQualificationMinimumQuantity PromoQualification = "MinimumQuantity"
)

func (t *PromoQualification) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("qualification type must be string")
	}
	switch str {
	case "MinimumAmount":
		*t = PromoQualificationMinimumAmount
	case "MinimumQuantity":
		*t = PromoQualificationMinimumQuantity
	default:
		return errors.New("invalid qualification type")
	}
	return nil
}

type InvoiceStatus string

const (
	InvoiceStatusDraft       InvoiceStatus = "Draft"
	InvoiceStatusConfirmed   InvoiceStatus = "Confirmed"
	InvoiceStatusVoid        InvoiceStatus = "Void"
	InvoiceStatusPartialPaid InvoiceStatus = "Partial Paid"
	InvoiceStatusPaid        InvoiceStatus = "Paid"
)

func (t *InvoiceStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("invoice status must be string")
	}

	statuses := map[string]InvoiceStatus{
		"Draft":        InvoiceStatusDraft,
		"Confirmed":    InvoiceStatusConfirmed,
		"Void":         InvoiceStatusVoid,
		"Partial Paid": InvoiceStatusPartialPaid,
		"Paid":         InvoiceStatusPaid,
	}

	var ok bool
	*t, ok = statuses[str]
	if !ok {
		return errors.New("invalid invoice status")
	}
	return nil
}

type EligibilityStatus string

const (
	EligibilityStatusEligible    EligibilityStatus = "Eligible"
	EligibilityStatusNotEligible EligibilityStatus = "Not Eligible"
)

type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format("2006-01-02T15:04:05"))
}

// Parse the string into time.Time object
func (t *MyDateString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("MyDateString must be string")
	}

	// Parse the date string into a time.Time object
	localTime, err := time.Parse("2006-01-02T15:04:05", str)
	if err != nil {
		// date-only input is accepted from report filters
		localTime, err = time.Parse("2006-01-02", str)
		if err != nil {
			return errors.New("error parsing datetime")
		}
	}
	*t = MyDateString(localTime)

	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the start of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the end of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999, // Max nanoseconds
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

// Value implements the driver.Valuer interface
func (t MyDateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *MyDateString) Scan(value interface{}) error {
	if value == nil {
		*t = MyDateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = MyDateString(v)
	default:
		return fmt.Errorf("cannot convert %T to MyDateString", value)
	}
	return nil
}
