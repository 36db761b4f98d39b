package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	menuEntry    = 1
	menuExit     = 2
	menuShutdown = 3
)

// Shell is the console front end. It reads one line per answer and is also
// the InputReader handed to the lifecycle operations.
type Shell struct {
	lifecycle Lifecycle
	scanner   *bufio.Scanner
	out       io.Writer
	tracer    trace.Tracer
	eof       bool
}

func NewShell(lifecycle Lifecycle, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		lifecycle: lifecycle,
		scanner:   bufio.NewScanner(in),
		out:       out,
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
}

// NewInstrumentedShell traces every menu command.
func NewInstrumentedShell(lifecycle Lifecycle, in io.Reader, out io.Writer, telemetry *TelemetryProvider) *Shell {
	s := NewShell(lifecycle, in, out)
	s.tracer = telemetry.Tracer()
	return s
}

func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	s.println("Welcome to Parking System!")

	for ctx.Err() == nil {
		s.loadMenu()
		option := s.ReadSelection()
		if s.eof {
			break
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.Int("command.option", option)))
		done := s.processCommand(cmdCtx, option)
		cmdSpan.End()

		if done {
			break
		}
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) loadMenu() {
	s.println("Please select an option. Simply enter the number to choose an action")
	s.println("1 New Vehicle Entering - Allocate Parking Space")
	s.println("2 Vehicle Exiting - Generate Ticket Price")
	s.println("3 Shutdown System")
}

func (s *Shell) processCommand(ctx context.Context, option int) bool {
	switch option {
	case menuEntry:
		s.handleEntry(ctx)
	case menuExit:
		s.handleExit(ctx)
	case menuShutdown:
		s.println("Exiting from the system!")
		return true
	default:
		trace.SpanFromContext(ctx).AddEvent("unsupported_option")
		s.println("Unsupported option. Please enter a number corresponding to the provided menu")
	}
	return false
}

func (s *Shell) handleEntry(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.entry_command")
	defer span.End()

	receipt, err := s.lifecycle.ProcessIncomingVehicle(ctx, entryPrompts{s})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportError(err)
		return
	}

	if receipt.DiscountPercent > 0 {
		s.printf("Welcome back! As a recurring user of our parking lot, you'll benefit from a %d%% discount.\n",
			receipt.DiscountPercent)
	}
	s.println("Generated Ticket and saved")
	if receipt.SpotPersistErr != nil {
		s.println("Warning: unable to record the parking spot as occupied")
	}
	s.printf("Please park your vehicle in spot number:%d\n", receipt.SpotID)
	s.printf("Recorded in-time for vehicle number:%s is:%s\n",
		receipt.VehicleID, receipt.InTime.Format(time.DateTime))
}

func (s *Shell) handleExit(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.exit_command")
	defer span.End()

	receipt, err := s.lifecycle.ProcessExitingVehicle(ctx, exitPrompts{s})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.reportError(err)
		return
	}

	s.printf("Please pay the parking fare:%s\n", receipt.Price.StringFixed(2))
	s.printf("Recorded out-time for vehicle number:%s is:%s\n",
		receipt.VehicleID, receipt.OutTime.Format(time.DateTime))
}

func (s *Shell) reportError(err error) {
	switch {
	case errors.Is(err, ErrInvalidCategory):
		s.println("Incorrect input provided")
	case errors.Is(err, ErrInvalidVehicleID):
		s.println("Error reading input. Please enter a valid string for vehicle registration number")
	case errors.Is(err, ErrNoSpotAvailable), errors.Is(err, ErrSpotTaken):
		s.println("Sorry, parking lot is full")
	case errors.Is(err, ErrTicketUpdate):
		s.println("Unable to update ticket information. Error occurred")
	case errors.Is(err, ErrTicketNotFound):
		s.println("No ticket found for this vehicle")
	case errors.Is(err, ErrAlreadyDeparted):
		s.println("This vehicle has already exited")
	default:
		s.printf("Error: %s\n", err.Error())
	}
}

// ReadSelection reads a number. Anything else, including end of input,
// yields -1.
func (s *Shell) ReadSelection() int {
	line, err := s.readLine()
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		s.println("Error reading input. Please enter valid number for proceeding further")
		return -1
	}
	return n
}

func (s *Shell) ReadVehicleID() (string, error) {
	line, err := s.readLine()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidVehicleID, err)
	}
	vehicleID := strings.TrimSpace(line)
	if vehicleID == "" {
		return "", ErrInvalidVehicleID
	}
	return vehicleID, nil
}

func (s *Shell) readLine() (string, error) {
	if !s.scanner.Scan() {
		s.eof = true
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *Shell) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// entryPrompts asks for the vehicle type and plate before each read.
type entryPrompts struct{ s *Shell }

func (p entryPrompts) ReadSelection() int {
	p.s.println("Please select vehicle type from menu")
	p.s.println("1 CAR")
	p.s.println("2 BIKE")
	return p.s.ReadSelection()
}

func (p entryPrompts) ReadVehicleID() (string, error) {
	p.s.println("Please type the vehicle registration number and press enter key")
	return p.s.ReadVehicleID()
}

type exitPrompts struct{ s *Shell }

func (p exitPrompts) ReadSelection() int {
	return p.s.ReadSelection()
}

func (p exitPrompts) ReadVehicleID() (string, error) {
	p.s.println("Please type the vehicle registration number and press enter key")
	return p.s.ReadVehicleID()
}
