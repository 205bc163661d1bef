package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bradford-hamilton/chippy8/internal/audio"
	"github.com/bradford-hamilton/chippy8/internal/chip8"
	"github.com/bradford-hamilton/chippy8/internal/video"
	"github.com/spf13/cobra"
)

const defaultTickRate = 540 // instruction ticks/sec; spec.md §9 calls ~500-700/sec typical
const timerRate = 60        // fixed: the sound/delay timers always tick at 60Hz

var (
	tickRate int
	headless bool
	seed     int64
)

// runCmd runs the chippy virtual machine against a ROM and waits for the window to close (or, in
// --headless mode, runs with no video/audio host attached until the VM reports an error).
var runCmd = &cobra.Command{
	Use:   "run path/to/rom",
	Short: "run the chippy emulator",
	Args:  cobra.ExactArgs(1),
	RunE:  runChippy,
}

func init() {
	runCmd.Flags().IntVar(&tickRate, "rate", defaultTickRate, "instruction ticks per second")
	runCmd.Flags().BoolVar(&headless, "headless", false, "run without a video/audio host, for CI/testing")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "PRNG seed for the CXNN opcode (0 derives from the current time)")
}

func runChippy(cmd *cobra.Command, args []string) error {
	pathToROM := args[0]
	rom, err := os.ReadFile(pathToROM)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}

	var opts []chip8.Option
	if seed != 0 {
		opts = append(opts, chip8.WithSeed(seed))
	}

	if headless {
		vm := chip8.New(nil, opts...)
		if err := vm.Load(rom, chip8.ProgramStart); err != nil {
			return fmt.Errorf("loading rom: %w", err)
		}
		return runHeadless(vm)
	}

	player, err := audio.NewPlayer("assets/beep.mp3")
	if err != nil {
		return fmt.Errorf("setting up audio: %w", err)
	}
	if err := player.Init(); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}

	vm := chip8.New(player.Beep, opts...)
	if err := vm.Load(rom, chip8.ProgramStart); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	win, err := video.NewWindow("chippy")
	if err != nil {
		return err
	}
	return runWindowed(vm, win)
}

// runHeadless ticks the VM at tickRate and the timers at timerRate, with no window and no input, until Tick
// returns an error, which it returns.
func runHeadless(vm *chip8.VM) error {
	instrTicker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer instrTicker.Stop()
	timerTicker := time.NewTicker(time.Second / timerRate)
	defer timerTicker.Stop()

	for {
		select {
		case <-instrTicker.C:
			if err := vm.Tick(); err != nil {
				var cerr *chip8.Error
				if errors.As(err, &cerr) {
					return fmt.Errorf("chippy: halted: %w", cerr)
				}
				return err
			}
		case <-timerTicker.C:
			vm.TickTimers()
		}
	}
}

// runWindowed ticks the VM at tickRate and the timers at timerRate, polling the keypad and redrawing the
// display whenever neither ticker is due, until the window is closed, logging and stopping on any fatal VM
// error.
func runWindowed(vm *chip8.VM, win *video.Window) error {
	instrTicker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer instrTicker.Stop()
	timerTicker := time.NewTicker(time.Second / timerRate)
	defer timerTicker.Stop()

	for !win.Closed() {
		select {
		case <-instrTicker.C:
			if err := vm.Tick(); err != nil {
				fmt.Printf("chippy: halted: %v\n", err)
				return nil
			}
		case <-timerTicker.C:
			vm.TickTimers()
		default:
			win.PollInput(vm)
			win.DrawScreen(vm.ScreenData())
		}
	}
	return nil
}
