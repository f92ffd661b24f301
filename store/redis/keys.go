package redis

// keys builds Redis key names. Every key starts with the prefix to avoid
// collisions with other data in the same database.
type keys string

const defaultKeys keys = "docflow:"

// ── Receipt keys ──

// receipt returns the key of an encoded receipt: docflow:receipt:{txID}
func (k keys) receipt(txID string) string { return string(k) + "receipt:" + txID }

// receipts is the Sorted Set of tx ids scored by ledger sequence.
func (k keys) receipts() string { return string(k) + "receipts" }

// callerReceipts is the per-caller Sorted Set of tx ids.
func (k keys) callerReceipts(caller string) string {
	return string(k) + "receipts:caller:" + caller
}

// ── Event keys ──

// event returns the key of an encoded event: docflow:event:{id}
func (k keys) event(eventID string) string { return string(k) + "event:" + eventID }

// ackedEvents is the Set of consumed event ids.
func (k keys) ackedEvents() string { return string(k) + "events_acked" }

// events is the Sorted Set of event ids scored by publish time.
func (k keys) events() string { return string(k) + "events" }

// eventsNamed is the per-name Sorted Set of event ids.
func (k keys) eventsNamed(name string) string { return string(k) + "events:name:" + name }

// eventStream returns the Stream fed by events of one name.
func (k keys) eventStream(name string) string { return string(k) + "stream:" + name }

// ── History keys ──

// history returns the Hash of encoded entries for a workflow, keyed by USN.
func (k keys) history(wf string) string { return string(k) + "history:" + wf }
