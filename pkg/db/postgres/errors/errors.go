package errors

import (
	"errors"
	"fmt"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
)

// requested record is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return fdb.ErrMissing
}

// requested record is found too much.
type TooMuch struct {
	Table    string
	Identity string
	Expected int
}

var _ error = TooMuch{}

func (t TooMuch) Error() string {
	return fmt.Sprintf(
		"%s is found in %s more than %d times",
		t.Identity, t.Table, t.Expected,
	)
}

func (t TooMuch) Unwrap() error {
	return fdb.ErrTooMuch
}

// Conflict is a violation of an unique constraint.
type Conflict struct {
	Constraint string
	Detail     string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("conflict on %s: %s", c.Constraint, c.Detail)
}

func (c Conflict) Unwrap() error {
	return fdb.ErrConflict
}

// Translate converts errors from postgres into errors of pkg/db.
//
// - pgx.ErrNoRows: Missing of the table and identity
//
// - unique violation: Conflict
//
// - foreign key violation: Missing of the referenced record
//
// - check violation: ErrInvalidParam
//
// Other errors are returned as they are.
func Translate(err error, table string, identity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Missing{Table: table, Identity: identity}
	}
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
		switch pgerr.Code {
		case pgerrcode.UniqueViolation:
			return Conflict{Constraint: pgerr.ConstraintName, Detail: pgerr.Detail}
		case pgerrcode.ForeignKeyViolation:
			return Missing{Table: pgerr.TableName, Identity: pgerr.Detail}
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s", fdb.ErrInvalidParam, pgerr.ConstraintName)
		}
	}
	return err
}
