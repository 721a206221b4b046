package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// Publication is one successful register of an entity version.
type Publication struct {
	Seq     int64
	BatchID string
	Name    string
	Version int
	Access  ref.Access
	Traits  trait.Data
}

// Locator returns the locator of the published version.
func (p Publication) Locator() ref.Locator {
	return ref.NewLocator(p.Name, p.Access).WithVersion(p.Version)
}

// Append records p and returns its assigned sequence number.
// Recording a second publication for the same entity version is an error.
func (s *Store) Append(ctx context.Context, p Publication) (int64, error) {
	if p.Name == "" {
		return 0, fmt.Errorf("append publication: entity name is empty")
	}
	if p.Version < 1 {
		return 0, fmt.Errorf("append publication %q: version %d must be positive", p.Name, p.Version)
	}

	traitsJSON, err := marshalTraits(p.Traits)
	if err != nil {
		return 0, fmt.Errorf("append publication %q: %w", p.Name, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO publications (batch_id, entity, version, access, traits)
		VALUES (?, ?, ?, ?, ?)
	`,
		p.BatchID,
		p.Name,
		p.Version,
		string(p.Access),
		traitsJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("append publication %q v%d: %w", p.Name, p.Version, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append publication: %w", err)
	}
	return seq, nil
}

// ReadAll returns every publication in the order it was appended.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadAll(ctx context.Context) ([]Publication, error) {
	return s.query(ctx, `
		SELECT seq, batch_id, entity, version, access, traits
		FROM publications
		ORDER BY seq ASC
	`)
}

// ReadEntity returns the publications of one entity, oldest first.
func (s *Store) ReadEntity(ctx context.Context, name string) ([]Publication, error) {
	return s.query(ctx, `
		SELECT seq, batch_id, entity, version, access, traits
		FROM publications
		WHERE entity = ?
		ORDER BY seq ASC
	`, name)
}

// ReadBatch returns the publications made by one register batch.
func (s *Store) ReadBatch(ctx context.Context, batchID string) ([]Publication, error) {
	return s.query(ctx, `
		SELECT seq, batch_id, entity, version, access, traits
		FROM publications
		WHERE batch_id = ?
		ORDER BY seq ASC
	`, batchID)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	out := []Publication{}
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publications: %w", err)
	}
	return out, nil
}

func scanPublication(rows *sql.Rows) (Publication, error) {
	var (
		p          Publication
		access     string
		traitsJSON string
	)
	if err := rows.Scan(&p.Seq, &p.BatchID, &p.Name, &p.Version, &access, &traitsJSON); err != nil {
		return Publication{}, fmt.Errorf("scan publication: %w", err)
	}

	a, err := ref.ParseAccess(access)
	if err != nil {
		return Publication{}, fmt.Errorf("publication %d: %w", p.Seq, err)
	}
	p.Access = a

	traits, err := unmarshalTraits(traitsJSON)
	if err != nil {
		return Publication{}, fmt.Errorf("publication %d: %w", p.Seq, err)
	}
	p.Traits = traits
	return p, nil
}

// marshalTraits converts trait data to JSON TEXT for storage. Keys are
// sorted but strings are stored exactly as registered: canonical JSON
// would NFC-normalize them and replay would restore different data.
func marshalTraits(d trait.Data) (string, error) {
	if d == nil {
		d = trait.Data{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal traits: %w", err)
	}
	return string(data), nil
}

func unmarshalTraits(s string) (trait.Data, error) {
	var d trait.Data
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, fmt.Errorf("unmarshal traits: %w", err)
	}
	if d == nil {
		d = trait.Data{}
	}
	return d, nil
}
