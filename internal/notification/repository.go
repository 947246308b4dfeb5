package notification

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// Repository defines the interface for notification class persistence.
type Repository interface {
	List(ctx context.Context) ([]*Class, error)
	Get(ctx context.Context, instance uint32) (*Class, error)
	Save(ctx context.Context, c *Class) error
	Delete(ctx context.Context, instance uint32) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed class repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Compile-time check.
var _ Repository = (*SQLiteRepository)(nil)

const selectClassColumns = `SELECT instance, device_instance, name, description,
	priority_offnormal, priority_normal, priority_fault, ack_required
	FROM notification_classes`

const selectRecipientColumns = `SELECT class_instance, valid_days, from_time, to_time,
	device_instance, address_net, address_mac, process_id, confirmed, transitions
	FROM notification_recipients`

// List returns every class ordered by instance, with recipients loaded.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Class, error) {
	rows, err := r.db.QueryContext(ctx, selectClassColumns+` ORDER BY instance`)
	if err != nil {
		return nil, fmt.Errorf("querying notification classes: %w", err)
	}
	defer rows.Close()

	var classes []*Class
	byInstance := make(map[uint32]*Class)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification class row: %w", err)
		}
		classes = append(classes, c)
		byInstance[c.Instance] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification class rows: %w", err)
	}

	recipients, err := r.queryRecipients(ctx, selectRecipientColumns+` ORDER BY class_instance, position`)
	if err != nil {
		return nil, err
	}
	for instance, recs := range recipients {
		if c, ok := byInstance[instance]; ok {
			c.recipients = recs
		}
	}
	return classes, nil
}

// Get returns one class with its recipients.
func (r *SQLiteRepository) Get(ctx context.Context, instance uint32) (*Class, error) {
	row := r.db.QueryRowContext(ctx, selectClassColumns+` WHERE instance = ?`, instance)
	c, err := scanClass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("scanning notification class %d: %w", instance, err)
	}

	recipients, err := r.queryRecipients(ctx,
		selectRecipientColumns+` WHERE class_instance = ? ORDER BY position`, instance)
	if err != nil {
		return nil, err
	}
	c.recipients = recipients[instance]
	if c.recipients == nil {
		c.recipients = []RecipientRecord{}
	}
	return c, nil
}

// Save inserts or updates a class and replaces its recipient list in one
// transaction.
func (r *SQLiteRepository) Save(ctx context.Context, c *Class) error {
	if err := c.Validate(); err != nil {
		return err
	}
	recipients := c.Recipients()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	const upsert = `INSERT INTO notification_classes (instance, device_instance, name, description,
		priority_offnormal, priority_normal, priority_fault, ack_required)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance) DO UPDATE SET
			device_instance = excluded.device_instance,
			name = excluded.name,
			description = excluded.description,
			priority_offnormal = excluded.priority_offnormal,
			priority_normal = excluded.priority_normal,
			priority_fault = excluded.priority_fault,
			ack_required = excluded.ack_required,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`
	_, err = tx.ExecContext(ctx, upsert,
		c.Instance, c.Device, c.Name, c.Description,
		c.Priorities[TransitionToOffNormal], c.Priorities[TransitionToNormal], c.Priorities[TransitionToFault],
		c.AckRequired.Bits)
	if err != nil {
		return fmt.Errorf("upserting notification class %d: %w", c.Instance, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notification_recipients WHERE class_instance = ?`, c.Instance); err != nil {
		return fmt.Errorf("clearing recipients of class %d: %w", c.Instance, err)
	}

	const insert = `INSERT INTO notification_recipients (class_instance, position,
		valid_days, from_time, to_time, device_instance, address_net, address_mac,
		process_id, confirmed, transitions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, rec := range recipients {
		device, net, mac, err := recipientColumns(rec.Recipient)
		if err != nil {
			return fmt.Errorf("recipient %d of class %d: %w", i, c.Instance, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			c.Instance, i,
			rec.ValidDays.Bits, rec.From.String(), rec.To.String(),
			device, net, mac,
			rec.ProcessID, rec.Confirmed, rec.Transitions.Bits)
		if err != nil {
			return fmt.Errorf("inserting recipient %d of class %d: %w", i, c.Instance, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing class %d: %w", c.Instance, err)
	}
	return nil
}

// Delete removes a class and its recipients.
func (r *SQLiteRepository) Delete(ctx context.Context, instance uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notification_recipients WHERE class_instance = ?`, instance); err != nil {
		return fmt.Errorf("deleting recipients of class %d: %w", instance, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM notification_classes WHERE instance = ?`, instance)
	if err != nil {
		return fmt.Errorf("deleting class %d: %w", instance, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrClassNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of class %d: %w", instance, err)
	}
	return nil
}

// queryRecipients runs a recipient query and groups the rows by class.
func (r *SQLiteRepository) queryRecipients(ctx context.Context, query string, args ...any) (map[uint32][]RecipientRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recipients: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32][]RecipientRecord)
	for rows.Next() {
		instance, rec, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recipient row: %w", err)
		}
		out[instance] = append(out[instance], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipient rows: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(row rowScanner) (*Class, error) {
	var (
		instance, device                  uint32
		name, description                 string
		offnormal, normal, fault, ackBits uint32
	)
	if err := row.Scan(&instance, &device, &name, &description,
		&offnormal, &normal, &fault, &ackBits); err != nil {
		return nil, err
	}

	c := NewClass(instance, device)
	c.Name = name
	c.Description = description
	//nolint:gosec // priorities are stored from uint8 values
	c.Priorities = [transitionCount]uint8{uint8(offnormal), uint8(normal), uint8(fault)}
	c.AckRequired = bacnet.BitString{Len: transitionCount, Bits: ackBits}
	return c, nil
}

func scanRecipient(row rowScanner) (uint32, RecipientRecord, error) {
	var (
		instance         uint32
		rec              RecipientRecord
		validDays, trans uint32
		fromTime, toTime string
		device, net      sql.NullInt64
		mac              sql.NullString
	)
	if err := row.Scan(&instance, &validDays, &fromTime, &toTime,
		&device, &net, &mac, &rec.ProcessID, &rec.Confirmed, &trans); err != nil {
		return 0, rec, err
	}

	var err error
	if rec.From, err = bacnet.ParseTimeOfDay(fromTime); err != nil {
		return 0, rec, err
	}
	if rec.To, err = bacnet.ParseTimeOfDay(toTime); err != nil {
		return 0, rec, err
	}
	rec.ValidDays = bacnet.BitString{Len: daysInWeek, Bits: validDays}
	rec.Transitions = bacnet.BitString{Len: transitionCount, Bits: trans}

	switch {
	case device.Valid:
		//nolint:gosec // device instances are stored from uint32 values
		rec.Recipient = DeviceRecipient{Device: bacnet.DeviceID(uint32(device.Int64))}
	case mac.Valid:
		raw, err := hex.DecodeString(mac.String)
		if err != nil {
			return 0, rec, fmt.Errorf("decoding address MAC %q: %w", mac.String, err)
		}
		//nolint:gosec // network numbers are stored from uint16 values
		rec.Recipient = AddressRecipient{Address: bacnet.Address{Net: uint16(net.Int64), MAC: raw}}
	default:
		return 0, rec, fmt.Errorf("recipient row for class %d has no target", instance)
	}
	return instance, rec, nil
}

// recipientColumns splits a recipient into its nullable columns.
func recipientColumns(r Recipient) (device, net sql.NullInt64, mac sql.NullString, err error) {
	switch v := r.(type) {
	case DeviceRecipient:
		if v.Device.Type != bacnet.ObjectDevice {
			return device, net, mac, fmt.Errorf("%w: recipient %s is not a device", ErrInvalidClass, v.Device)
		}
		device = sql.NullInt64{Int64: int64(v.Device.Instance), Valid: true}
	case AddressRecipient:
		net = sql.NullInt64{Int64: int64(v.Address.Net), Valid: true}
		mac = sql.NullString{String: hex.EncodeToString(v.Address.MAC), Valid: true}
	default:
		return device, net, mac, fmt.Errorf("%w: recipient has no target", ErrInvalidClass)
	}
	return device, net, mac, nil
}
