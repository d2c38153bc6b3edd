package leftright

// Slot identifies one of the two storage slots for diagnostics.
type Slot uint8

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotA {
		return "slot A"
	}
	return "slot B"
}

// Site identifies the acquisition that detected a protocol violation.
type Site uint8

const (
	// SiteWrite: a write handle was requested while one is already
	// outstanding (re-entrant or interrupting writer).
	SiteWrite Site = iota
	// SiteSyncRead: the resync copy could not read-acquire the slot
	// readers currently observe.
	SiteSyncRead
	// SiteSyncWrite: the resync copy could not write-acquire the slot
	// about to be reused for writing; a reader from a prior generation
	// is still holding it.
	SiteSyncWrite
)

func (s Site) String() string {
	switch s {
	case SiteWrite:
		return "write"
	case SiteSyncRead:
		return "sync read"
	default:
		return "sync write"
	}
}

// ContentionError is the payload of the panics raised by Write,
// WriteWithoutSync and the internal resync step. All of them signal a
// violated scheduling assumption (single writer, writer never
// interrupts a reader) and are unrecoverable at this layer; recovery
// such as a task restart or watchdog reset belongs to the surrounding
// system.
type ContentionError struct {
	Site Site
	Slot Slot
}

func (e *ContentionError) Error() string {
	return "leftright: " + e.Site.String() + " contention on " + e.Slot.String()
}

// WriterContention reports whether the violation was a second
// outstanding write handle, as opposed to a stale reader blocking the
// resync copy.
func (e *ContentionError) WriterContention() bool {
	return e.Site == SiteWrite
}
