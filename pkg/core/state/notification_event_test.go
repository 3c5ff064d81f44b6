package state

import (
	"testing"

	"github.com/nspcc-dev/oracle-bridge/internal/testserdes"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNotificationEvent(t *testing.T) {
	t.Run("Log", func(t *testing.T) {
		event := &ContainedNotificationEvent{
			Index:     5,
			Container: 3,
			NotificationEvent: NewLogEvent(&LogEvent{
				ID:          util.Uint256{1, 2, 3},
				Requester:   util.Uint160{4, 5, 6},
				Operation:   operation.GetAlerts,
				PathParams:  []byte{0x81, 0x61, 0x61},
				QueryParams: []byte{0x80},
				Options:     "",
			}),
		}
		testserdes.EncodeDecodeBinary(t, event)
		testserdes.MarshalUnmarshalJSON(t, event)
	})
	t.Run("LogResult", func(t *testing.T) {
		event := &ContainedNotificationEvent{
			Index: 6,
			NotificationEvent: NewLogResultEvent(&LogResultEvent{
				ID:         util.Uint256{1, 2, 3},
				Operation:  operation.GetCountries,
				StatusCode: 200,
				Response:   []byte("placeholder response"),
			}),
		}
		testserdes.EncodeDecodeBinary(t, event)
		testserdes.MarshalUnmarshalJSON(t, event)
		require.Equal(t, util.Uint256{1, 2, 3}, event.ID())
	})
}

func TestNotificationEventErrors(t *testing.T) {
	_, err := testserdes.EncodeBinary(&NotificationEvent{Name: "Transfer"})
	require.Error(t, err)

	_, err = testserdes.EncodeBinary(&NotificationEvent{Name: LogEventName})
	require.Error(t, err)

	_, err = testserdes.EncodeBinary(&NotificationEvent{Name: LogResultEventName})
	require.Error(t, err)

	w := io.NewBufBinWriter()
	w.WriteString("Transfer")
	require.Error(t, testserdes.DecodeBinary(w.Bytes(), new(NotificationEvent)))
}

func TestEncodeDecodeQueries(t *testing.T) {
	testserdes.EncodeDecodeBinary(t, &PendingQuery{
		ID:        util.Uint256{7},
		Requester: util.Uint160{8},
		Operation: operation.GetSunmoon,
	})
	testserdes.EncodeDecodeBinary(t, &QueryResult{
		ID:         util.Uint256{7},
		Operation:  operation.Code(100),
		StatusCode: 404,
		Response:   []byte{},
	})
}
