package parking

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLifecycle drives the InputReader like the service does and returns
// canned results.
type stubLifecycle struct {
	entry    *EntryReceipt
	entryErr error
	exit     *ExitReceipt
	exitErr  error

	selections []int
	vehicleIDs []string
}

func (l *stubLifecycle) ProcessIncomingVehicle(_ context.Context, in InputReader) (*EntryReceipt, error) {
	l.selections = append(l.selections, in.ReadSelection())
	id, err := in.ReadVehicleID()
	if err != nil {
		return nil, err
	}
	l.vehicleIDs = append(l.vehicleIDs, id)
	return l.entry, l.entryErr
}

func (l *stubLifecycle) ProcessExitingVehicle(_ context.Context, in InputReader) (*ExitReceipt, error) {
	id, err := in.ReadVehicleID()
	if err != nil {
		return nil, err
	}
	l.vehicleIDs = append(l.vehicleIDs, id)
	return l.exit, l.exitErr
}

func runShell(t *testing.T, lifecycle Lifecycle, input string) string {
	t.Helper()
	var out bytes.Buffer
	NewShell(lifecycle, strings.NewReader(input), &out).Run(context.Background())
	return out.String()
}

func TestShellShutdown(t *testing.T) {
	out := runShell(t, &stubLifecycle{}, "3\n")

	assert.Contains(t, out, "Welcome to Parking System!")
	assert.Contains(t, out, "1 New Vehicle Entering - Allocate Parking Space")
	assert.Contains(t, out, "Exiting from the system!")
}

func TestShellUnsupportedOption(t *testing.T) {
	out := runShell(t, &stubLifecycle{}, "9\nabc\n3\n")

	assert.Equal(t, 2, strings.Count(out, "Unsupported option. Please enter a number corresponding to the provided menu"))
	assert.Contains(t, out, "Error reading input. Please enter valid number for proceeding further")
}

func TestShellStopsAtEndOfInput(t *testing.T) {
	out := runShell(t, &stubLifecycle{}, "")

	assert.Contains(t, out, "Welcome to Parking System!")
	assert.NotContains(t, out, "Exiting from the system!")
}

func TestShellEntry(t *testing.T) {
	lifecycle := &stubLifecycle{
		entry: &EntryReceipt{
			Ticket:          &Ticket{ID: 1},
			SpotID:          1,
			Category:        Car,
			VehicleID:       "ABCDEF",
			InTime:          baseTime,
			DiscountPercent: LoyaltyDiscountPercent,
		},
	}

	out := runShell(t, lifecycle, "1\n1\nABCDEF\n3\n")

	assert.Equal(t, []int{SelectCar}, lifecycle.selections)
	assert.Equal(t, []string{"ABCDEF"}, lifecycle.vehicleIDs)
	assert.Contains(t, out, "Please select vehicle type from menu\n1 CAR\n2 BIKE\n")
	assert.Contains(t, out, "Please type the vehicle registration number and press enter key")
	assert.Contains(t, out, "you'll benefit from a 5% discount")
	assert.Contains(t, out, "Generated Ticket and saved")
	assert.Contains(t, out, "Please park your vehicle in spot number:1\n")
	assert.Contains(t, out, "Recorded in-time for vehicle number:ABCDEF is:2024-03-01 09:00:00")
}

func TestShellEntryFirstVisitHasNoWelcomeBack(t *testing.T) {
	lifecycle := &stubLifecycle{
		entry: &EntryReceipt{Ticket: &Ticket{ID: 1}, SpotID: 4, Category: Bike, VehicleID: "BIKE01", InTime: baseTime},
	}

	out := runShell(t, lifecycle, "1\n2\nBIKE01\n3\n")

	assert.NotContains(t, out, "Welcome back!")
	assert.Contains(t, out, "Please park your vehicle in spot number:4")
}

func TestShellEntryErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		input string
		want  string
	}{
		{"lot full", ErrNoSpotAvailable, "1\n1\nABCDEF\n3\n", "Sorry, parking lot is full"},
		{"spot taken", ErrSpotTaken, "1\n1\nABCDEF\n3\n", "Sorry, parking lot is full"},
		{"bad category", ErrInvalidCategory, "1\n7\nABCDEF\n3\n", "Incorrect input provided"},
		{"blank registration", nil, "1\n1\n   \n3\n", "Please enter a valid string for vehicle registration number"},
		{"store failure", ErrTicketSave, "1\n1\nABCDEF\n3\n", "Error: unable to save ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runShell(t, &stubLifecycle{entryErr: tt.err}, tt.input)
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "Generated Ticket and saved")
			assert.Contains(t, out, "Exiting from the system!")
		})
	}
}

func TestShellExit(t *testing.T) {
	outTime := baseTime.Add(time.Hour)
	lifecycle := &stubLifecycle{
		exit: &ExitReceipt{
			Ticket:    &Ticket{ID: 1},
			SpotID:    1,
			VehicleID: "ABCDEF",
			Price:     decimal.RequireFromString("1.5"),
			OutTime:   outTime,
		},
	}

	out := runShell(t, lifecycle, "2\nABCDEF\n3\n")

	assert.Equal(t, []string{"ABCDEF"}, lifecycle.vehicleIDs)
	assert.Contains(t, out, "Please pay the parking fare:1.50\n")
	assert.Contains(t, out, "Recorded out-time for vehicle number:ABCDEF is:2024-03-01 10:00:00")
}

func TestShellExitErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrTicketNotFound, "No ticket found for this vehicle"},
		{ErrAlreadyDeparted, "This vehicle has already exited"},
		{ErrTicketUpdate, "Unable to update ticket information. Error occurred"},
	}

	for _, tt := range tests {
		out := runShell(t, &stubLifecycle{exitErr: tt.err}, "2\nABCDEF\n3\n")
		assert.Contains(t, out, tt.want)
		assert.NotContains(t, out, "Please pay the parking fare")
	}
}

func TestShellExitTicketVanishedOnUpdate(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrTicketUpdate, fmt.Errorf("%w: ticket 7", ErrTicketNotFound))

	out := runShell(t, &stubLifecycle{exitErr: err}, "2\nABCDEF\n3\n")

	assert.Contains(t, out, "Unable to update ticket information. Error occurred")
	assert.NotContains(t, out, "No ticket found for this vehicle")
}

func TestShellEntrySpotNotRecorded(t *testing.T) {
	lifecycle := &stubLifecycle{
		entry: &EntryReceipt{
			Ticket:         &Ticket{ID: 2},
			SpotID:         3,
			Category:       Car,
			VehicleID:      "ABCDEF",
			InTime:         baseTime,
			SpotPersistErr: fmt.Errorf("%w: connection refused", ErrSpotUpdate),
		},
	}

	out := runShell(t, lifecycle, "1\n1\nABCDEF\n3\n")

	assert.Contains(t, out, "Generated Ticket and saved")
	assert.Contains(t, out, "Warning: unable to record the parking spot as occupied")
	assert.Contains(t, out, "Please park your vehicle in spot number:3\n")
}

func TestShellReadVehicleID(t *testing.T) {
	var out bytes.Buffer
	shell := NewShell(nil, strings.NewReader("  KA01  \n\n"), &out)

	id, err := shell.ReadVehicleID()
	require.NoError(t, err)
	assert.Equal(t, "KA01", id)

	_, err = shell.ReadVehicleID()
	assert.ErrorIs(t, err, ErrInvalidVehicleID)

	_, err = shell.ReadVehicleID()
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
}
