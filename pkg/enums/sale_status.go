package enums

import (
	"fmt"
	"strings"
)

// SaleStatus is the wire form of a query's tri-state outcome flag.
type SaleStatus string

const (
	SaleStatusWon     SaleStatus = "won"
	SaleStatusLost    SaleStatus = "lost"
	SaleStatusPending SaleStatus = "pending"
)

// ParseSaleStatus accepts won/lost/pending as well as true/false/null.
func ParseSaleStatus(value string) (SaleStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "won", "true":
		return SaleStatusWon, nil
	case "lost", "false":
		return SaleStatusLost, nil
	case "pending", "null", "":
		return SaleStatusPending, nil
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}

// Flag converts the status into the stored nullable boolean.
func (s SaleStatus) Flag() *bool {
	switch s {
	case SaleStatusWon:
		v := true
		return &v
	case SaleStatusLost:
		v := false
		return &v
	}
	return nil
}

// SaleStatusFromFlag is the inverse of Flag.
func SaleStatusFromFlag(flag *bool) SaleStatus {
	if flag == nil {
		return SaleStatusPending
	}
	if *flag {
		return SaleStatusWon
	}
	return SaleStatusLost
}
