package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// maxParams mirrors SQLITE_MAX_VARIABLE_NUMBER.
const maxParams = 32766

// Bindings collects the placeholder values of one prepared statement.
type Bindings struct {
	args []any
}

// Bind assigns v to the placeholder at the 1-based ordinal.
func (b *Bindings) Bind(ordinal int, v types.Value) error {
	if ordinal < 1 || ordinal > maxParams {
		return types.NewError(types.StageBind, codeRange, fmt.Errorf("placeholder ordinal %d out of range", ordinal))
	}
	var arg any
	switch v.Kind() {
	case types.KindReal:
		arg = v.Float(0)
	case types.KindInteger:
		arg = v.Int(0)
	case types.KindText:
		arg = v.Str("")
	case types.KindNull:
		arg = nil
	default:
		return types.NewError(types.StageBind, codeMismatch, fmt.Errorf("unsupported value kind %s", v.Kind()))
	}
	for len(b.args) < ordinal {
		b.args = append(b.args, nil)
	}
	b.args[ordinal-1] = arg
	return nil
}

// Args returns the bound values in ordinal order.
func (b *Bindings) Args() []any { return b.args }

// Binder fills the placeholders of a prepared statement.
type Binder func(b *Bindings) error

// BindValues returns a Binder assigning values to ordinals 1..n.
func BindValues(values ...types.Value) Binder {
	if len(values) == 0 {
		return nil
	}
	return func(b *Bindings) error {
		for i, v := range values {
			if err := b.Bind(i+1, v); err != nil {
				return err
			}
		}
		return nil
	}
}

// Exec runs the first statement of script and returns the unexecuted rest.
// Rows produced by the statement go to dst (which may be nil): a read-only
// statement replaces its contents, any other statement appends. When script
// holds no further statement Exec returns types.ErrEndOfStatement.
func (c *Conn) Exec(script string, bind Binder, dst *types.Table) (string, error) {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()

	if err := c.openLocked(); err != nil {
		return script, err
	}
	return c.execLocked(script, bind, dst)
}

// RunScript executes every statement of script in order and stops at the
// first failure. Statements already executed stay applied.
func (c *Conn) RunScript(script string) error {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()

	if err := c.openLocked(); err != nil {
		return err
	}
	return c.runScriptLocked(script)
}

func (c *Conn) runScriptLocked(script string) error {
	var scratch types.Table
	for {
		rest, err := c.execLocked(script, nil, &scratch)
		if errors.Is(err, types.ErrEndOfStatement) {
			return nil
		}
		if err != nil {
			return err
		}
		script = rest
	}
}

// execLocked is the statement executor proper. It only takes internalMu, so
// script runs and Do blocks can call it repeatedly under one interfaceMu
// hold.
func (c *Conn) execLocked(script string, bind Binder, dst *types.Table) (string, error) {
	text, rest := nextStatement(script)
	if text == "" {
		return "", types.ErrEndOfStatement
	}
	if dst == nil {
		dst = new(types.Table)
	}

	c.internalMu.Lock()
	defer c.internalMu.Unlock()

	if c.handle == nil {
		return rest, types.ErrNotOpen
	}

	ctx := context.Background()
	started := time.Now()
	ev := QueryEvent{SQL: text}
	defer func() {
		ev.Elapsed = time.Since(started)
		c.logger.LogQuery(ev)
	}()

	stmt, err := c.handle.PrepareContext(ctx, text)
	if err != nil {
		ev.Err = err
		return rest, types.NewError(types.StagePrepare, driverCode(err, codeError), err)
	}
	defer stmt.Close()

	var b Bindings
	if bind != nil {
		if err := bind(&b); err != nil {
			ev.Err = err
			return rest, asBindError(err)
		}
	}
	if n := paramCount(text); len(b.args) > n {
		err := types.NewError(types.StageBind, codeRange,
			fmt.Errorf("bound %d values to a statement with %d placeholders", len(b.args), n))
		ev.Err = err
		return rest, err
	}
	ev.SQL = expandSQL(text, b.args)

	kind := classify(text)
	if kind.returnsRows {
		ev.Selected = kind.readOnly
		n, err := queryInto(ctx, stmt, b.args, kind.readOnly, dst)
		ev.Rows = n
		if err != nil {
			ev.Err = err
			return rest, err
		}
		ev.Success = true
		return rest, nil
	}

	res, err := stmt.ExecContext(ctx, b.args...)
	if err != nil {
		ev.Err = err
		return rest, types.NewError(types.StageStep, driverCode(err, codeError), err)
	}
	if n, err := res.RowsAffected(); err == nil {
		ev.Rows = n
	}
	ev.Success = true
	return rest, nil
}

// queryInto steps a row-producing statement and appends its rows to dst,
// clearing dst first when replace is set and the statement started.
func queryInto(ctx context.Context, stmt *sql.Stmt, args []any, replace bool, dst *types.Table) (int64, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return 0, types.NewError(types.StageStep, driverCode(err, codeError), err)
	}
	defer rows.Close()

	if replace {
		*dst = (*dst)[:0]
	}
	cols, err := rows.Columns()
	if err != nil {
		return 0, types.NewError(types.StageStep, driverCode(err, codeError), err)
	}

	var n int64
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, types.NewError(types.StageStep, driverCode(err, codeMismatch), err)
		}
		row := make(types.Row, len(cols))
		for i, name := range cols {
			if _, dup := row[name]; dup {
				continue
			}
			row[name] = toValue(raw[i])
		}
		*dst = append(*dst, row)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, types.NewError(types.StageStep, driverCode(err, codeError), err)
	}
	return n, nil
}

// toValue maps a driver value to its tagged Value by the type the driver
// reported. Blobs and everything else the value model has no tag for
// become NULL.
func toValue(v any) types.Value {
	switch x := v.(type) {
	case float64:
		return types.Real(x)
	case int64:
		return types.Integer(x)
	case string:
		return types.Text(x)
	default:
		return types.Null()
	}
}

func asBindError(err error) error {
	var se *types.Error
	if errors.As(err, &se) && se.Stage == types.StageBind {
		return err
	}
	return types.NewError(types.StageBind, codeMismatch, err)
}

// Session executes statements inside one logical operation started by
// Conn.Do. It must not be used after the callback returns.
type Session struct {
	c *Conn
}

// Exec runs the first statement of script, see Conn.Exec.
func (s *Session) Exec(script string, bind Binder, dst *types.Table) (string, error) {
	return s.c.execLocked(script, bind, dst)
}

// RunScript runs every statement of script, see Conn.RunScript.
func (s *Session) RunScript(script string) error {
	return s.c.runScriptLocked(script)
}

// Do runs fn as one logical operation: no other caller's statement can
// interleave with the statements fn issues through the Session.
func (c *Conn) Do(fn func(s *Session) error) error {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()

	if err := c.openLocked(); err != nil {
		return err
	}
	return fn(&Session{c: c})
}

// Tx runs fn inside BEGIN/COMMIT as one logical operation. The transaction
// is rolled back when fn or the commit fails.
func (c *Conn) Tx(fn func(s *Session) error) error {
	return c.Do(func(s *Session) error {
		if err := s.RunScript("BEGIN IMMEDIATE;"); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			if rbErr := s.RunScript("ROLLBACK;"); rbErr != nil {
				return errors.Join(err, rbErr)
			}
			return err
		}
		if err := s.RunScript("COMMIT;"); err != nil {
			_ = s.RunScript("ROLLBACK;")
			return err
		}
		return nil
	})
}
