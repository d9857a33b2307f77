package services

import "errors"

// ErrNoReportsFound is returned when a process run finds no report files
var ErrNoReportsFound = errors.New("no reports found")
