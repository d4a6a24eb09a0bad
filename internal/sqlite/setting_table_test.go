package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

func TestSettings_GetSet(t *testing.T) {
	c := newTestConn(t)
	s := NewSettings(c)

	v, err := s.Get(types.SettingTimezone)
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, s.Set(types.SettingTimezone, "-5"))
	require.NoError(t, s.Set("week_start", "monday"))

	v, err = s.Get(types.SettingTimezone)
	require.NoError(t, err)
	assert.Equal(t, "-5", v)

	all, err := s.All()
	require.NoError(t, err)
	var keys []string
	for _, st := range all {
		keys = append(keys, st.Key)
	}
	assert.Equal(t, []string{types.SettingLogLevel, types.SettingTimezone, "week_start"}, keys)

	assert.ErrorIs(t, s.Set("", "x"), types.ErrInvalidName)
}

func TestSettings_InsideTransaction(t *testing.T) {
	c := newTestConn(t)
	err := c.Tx(func(sess *Session) error {
		if err := NewSettings(sess).Set("theme", "dark"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = NewSettings(c).Get("theme")
	assert.ErrorIs(t, err, types.ErrNotFound, "rolled back")
}
