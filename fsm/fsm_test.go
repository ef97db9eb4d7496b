package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func actionKinds(actions []Action) []ActionKind {
	kinds := make([]ActionKind, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	return kinds
}

func TestIdleStartMovesToConnect(t *testing.T) {
	next, actions := step(Idle, EventStart)
	require.Equal(t, Connect, next)
	require.Contains(t, actionKinds(actions), ActionInitiateTCPConnection)
}

func TestConnectTCPEstablishedSendsOpen(t *testing.T) {
	next, actions := step(Connect, EventTCPCRAcked)
	require.Equal(t, OpenSent, next)
	require.Contains(t, actionKinds(actions), ActionSendOpen)
}

func TestOpenSentToOpenConfirmOnValidOpen(t *testing.T) {
	next, actions := step(OpenSent, EventOpenReceived)
	require.Equal(t, OpenConfirm, next)
	require.Contains(t, actionKinds(actions), ActionSendKeepalive)
	require.Contains(t, actionKinds(actions), ActionStartHoldTimer)
}

func TestOpenConfirmToEstablishedOnKeepalive(t *testing.T) {
	next, actions := step(OpenConfirm, EventKeepaliveReceived)
	require.Equal(t, Established, next)
	require.Contains(t, actionKinds(actions), ActionFireSessionUp)
	require.Contains(t, actionKinds(actions), ActionDrainAdjRIBOut)
}

func TestHoldTimerExpiryFromAnyEstablishedPathGoesIdle(t *testing.T) {
	for _, s := range []State{OpenSent, OpenConfirm, Established} {
		next, actions := step(s, EventHoldTimerExpires)
		require.Equal(t, Idle, next, "state %s", s)
		require.Contains(t, actionKinds(actions), ActionSendNotification)
		found := false
		for _, a := range actions {
			if a.Kind == ActionSendNotification {
				require.NotNil(t, a.Notification)
				found = true
			}
		}
		require.True(t, found)
	}
}

func TestNotificationReceivedAtOrAboveOpenSentGoesIdle(t *testing.T) {
	for _, s := range []State{OpenSent, OpenConfirm, Established} {
		next, _ := step(s, EventNotificationReceived)
		require.Equal(t, Idle, next, "state %s", s)
	}
}

func TestTCPConnectionFailsFromAnyStateGoesToIdleOrActive(t *testing.T) {
	next, _ := step(Connect, EventTCPConnectionFails)
	require.Equal(t, Active, next)

	next, _ = step(Established, EventTCPConnectionFails)
	require.Equal(t, Idle, next)
}

func TestConfigurationChangedFromEstablishedSoftResets(t *testing.T) {
	next, actions := step(Established, EventConfigurationChanged)
	require.Equal(t, Idle, next)
	require.Contains(t, actionKinds(actions), ActionSoftResetViaRefresh)
}

func TestUnhandledEventIsIgnoredWithNoStateChange(t *testing.T) {
	next, actions := step(Idle, EventKeepaliveReceived)
	require.Equal(t, Idle, next)
	require.Empty(t, actions)

	next, actions = step(Established, EventTCPCRAcked)
	require.Equal(t, Established, next)
	require.Empty(t, actions)
}

func TestFSMAppliesEventsSequentially(t *testing.T) {
	f := New()
	require.Equal(t, Idle, f.State())

	f.Apply(EventStart)
	require.Equal(t, Connect, f.State())

	f.Apply(EventTCPCRAcked)
	require.Equal(t, OpenSent, f.State())

	f.Apply(EventOpenReceived)
	require.Equal(t, OpenConfirm, f.State())

	f.Apply(EventKeepaliveReceived)
	require.Equal(t, Established, f.State())

	f.Apply(EventHoldTimerExpires)
	require.Equal(t, Idle, f.State())
}

func TestEveryStateEventPairIsTotal(t *testing.T) {
	states := []State{Idle, Connect, Active, OpenSent, OpenConfirm, Established}
	events := []Event{
		EventStart, EventStop, EventConfigurationChanged,
		EventConnectRetryTimerExpires, EventHoldTimerExpires, EventKeepaliveTimerExpires, EventIdleHoldTimerExpires,
		EventTCPConnectionConfirmed, EventTCPCRAcked, EventTCPConnectionFails,
		EventOpenReceived, EventOpenMalformed, EventHeaderError,
		EventKeepaliveReceived, EventUpdateReceived, EventUpdateMalformed, EventNotificationReceived,
	}
	for _, s := range states {
		for _, e := range events {
			next, _ := step(s, e)
			require.NotEqual(t, State(-1), next, "state %s event %s produced an invalid state", s, e)
		}
	}
}
