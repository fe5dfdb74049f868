package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/newspulse/internal/dashboard"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

func kindFromNotification(k dashboard.Kind) StatusKind {
	switch k {
	case dashboard.KindSuccess:
		return StatusSuccess
	case dashboard.KindWarn:
		return StatusWarn
	case dashboard.KindError:
		return StatusError
	default:
		return StatusInfo
	}
}

func (k StatusKind) style() lipgloss.Style {
	switch k {
	case StatusSuccess:
		return StatusSuccessStyle
	case StatusWarn:
		return StatusWarnStyle
	case StatusError:
		return StatusErrorStyle
	default:
		return StatusInfoStyle
	}
}

func (k StatusKind) icon() string {
	switch k {
	case StatusSuccess:
		return "✓"
	case StatusWarn:
		return "!"
	case StatusError:
		return "✗"
	default:
		return "i"
	}
}
