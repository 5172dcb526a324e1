package sdk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Classification(t *testing.T) {
	assert.False(t, OK.Failed())
	assert.True(t, ErrConnectTimeOut.Failed())
	assert.Equal(t, ErrConnect, ErrConnectTimeOut.Category())
	assert.True(t, WarnConnectReconnecting.IsWarning())
	assert.False(t, WarnConnectReconnecting.Failed())
	assert.True(t, NotifyContentsTransferStart.IsNotify())
}

func TestStatus_ErrorsAs(t *testing.T) {
	err := Check(ErrDeviceBusy)
	require.Error(t, err)

	var st Status
	require.True(t, errors.As(err, &st))
	assert.Equal(t, ErrDeviceBusy, st)
	assert.Contains(t, err.Error(), "device busy")

	assert.NoError(t, Check(OK))
	assert.NoError(t, Check(WarnFrameNotUpdated))
}

type nopTransport struct{ Transport }

func TestRegistry_OpenUnknown(t *testing.T) {
	_, err := Open("no-such-transport")
	assert.Error(t, err)
}

func TestRegistry_RegisterAndOpen(t *testing.T) {
	Register("test-nop", func() (Transport, error) { return nopTransport{}, nil })

	tr, err := Open("test-nop")
	require.NoError(t, err)
	assert.IsType(t, nopTransport{}, tr)
	assert.Contains(t, Transports(), "test-nop")

	assert.Panics(t, func() {
		Register("test-nop", func() (Transport, error) { return nil, nil })
	})
}

func TestDataType_Composition(t *testing.T) {
	assert.Equal(t, DataType(0x1001), TypeInt8)
	assert.Equal(t, DataType(0x2002), TypeUInt16Array)
}
