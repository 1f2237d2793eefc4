package journal

import "time"

// AuditEntry is one recorded action.
type AuditEntry struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	TargetID   string    `json:"target_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

// Record appends an audit entry. A zero OccurredAt is stamped with now.
func (db *DB) Record(e AuditEntry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO audit (occurred_at, actor_id, action, target_id, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.OccurredAt.UnixMilli(), e.ActorID, e.Action, e.TargetID, e.Outcome, e.Detail)
	return err
}

// RecentAudit returns the newest entries first.
func (db *DB) RecentAudit(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, occurred_at, actor_id, action, target_id, outcome, detail
		FROM audit ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e  AuditEntry
			ms int64
		)
		if err := rows.Scan(&e.ID, &ms, &e.ActorID, &e.Action, &e.TargetID, &e.Outcome, &e.Detail); err != nil {
			return nil, err
		}
		e.OccurredAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
