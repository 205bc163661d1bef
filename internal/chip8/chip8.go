// Package chip8 is a Chip-8 virtual machine. Chip-8 used to be implemented on 4k systems like the Telmac 1800 and
// Cosmac VIP where the chip-8 interpreter itself occupied the first 512 bytes of memory (up to 0x200). In modern
// Chip-8 implementations (like this one), where the interpreter runs natively outside the 4K memory space, there is
// no need to avoid the lower 512 bytes of memory (0x000-0x200), and it is common to store font data there.
//
// The VM is single-threaded and synchronous: Tick, TickTimers, KeyEvent and Load must not be called concurrently on
// the same VM without external synchronization.
package chip8

import (
	"fmt"
	"math/rand"
	"time"
)

//		System memory map
// 		+---------------+= 0xFFF End Chip-8 RAM
// 		|               |
// 		| 0x200 to 0xFFF|
// 		|     Chip-8    |
// 		| Program / Data|
// 		|     Space     |
// 		|               |
// 		+---------------+= 0x200 (512) Start of most Chip-8 programs
// 		| 0x000 to 0x1FF|
// 		| Font data here|
// 		+---------------+= 0x000 Begin Chip-8 RAM.
//

const (
	// DefaultRAM is the memory size used when no WithRAMSize option is given.
	DefaultRAM = 4096

	// ProgramStart is the standard base address Chip-8 programs are loaded at and begin executing from.
	ProgramStart = 0x200

	// screenWidth and screenHeight are fixed: the display is always exactly 64x32 cells.
	screenWidth  = 64
	screenHeight = 32

	numRegisters = 16
	numKeys      = 16
	stackSize    = 16
)

// FontSet is the canonical CHIP-8 4x5 hex digit font, 16 glyphs of 5 bytes each, written to memory address 0 on
// every reset so FX29 + DXYN renders a standard hex digit.
var FontSet = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// KeyEventType distinguishes a key press from a key release for KeyEvent.
type KeyEventType int

const (
	KeyReleased KeyEventType = iota
	KeyPressed
)

// VM is a Chip-8 virtual machine: memory, registers, stack, timers, screen, and keypad state, plus the
// fetch-decode-execute loop that drives them. A VM exclusively owns its memory, registers, screen bitmap,
// stack and keys; ScreenData returns a copy of the screen, so a host can never mutate the VM's bitmap.
type VM struct {
	// memory is the VM's RAM. Addresses 0x000-0x050 hold FontSet; a loaded program begins at 0x200 by default.
	memory []byte

	// v holds the 16 general purpose 8-bit registers V0-VF. VF doubles as the arithmetic carry / draw
	// collision flag, written as a side effect of several opcodes.
	v [numRegisters]byte

	// i is the 16-bit index register used to address memory for sprite reads, BCD writes, and register
	// save/load.
	i uint16

	// pc is the program counter. Always even and in [0, len(memory)-1] for well-formed programs.
	pc uint16

	// stack holds up to stackSize return addresses pushed by CALL and popped by RET.
	stack [stackSize]uint16

	// sp is the number of entries currently on the stack. sp is in [0, stackSize].
	sp int

	// delayTimer and soundTimer are 8-bit down-counters, each decremented by exactly one per TickTimers call
	// while non-zero.
	delayTimer byte
	soundTimer byte

	// screen is the 64x32 monochrome bitmap. screen[row][col]; row 0 is the top row, column 0 is leftmost.
	screen [screenHeight][screenWidth]bool

	// keys is the current pressed/released state of the 16-key hex keypad.
	keys [numKeys]bool

	rng *rand.Rand

	// beep is invoked synchronously from TickTimers exactly when soundTimer transitions from 1 to 0.
	beep func()
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithRAMSize sets the VM's memory size. The size is fixed for the VM's life.
func WithRAMSize(size int) Option {
	return func(vm *VM) {
		vm.memory = make([]byte, size)
	}
}

// WithSeed seeds the VM's PRNG (used by the CXNN opcode) for reproducible tests. Without this option the VM
// seeds itself from the current time, which production hosts should treat as equivalent to OS entropy.
func WithSeed(seed int64) Option {
	return func(vm *VM) {
		vm.rng = rand.New(rand.NewSource(seed))
	}
}

// New constructs a VM with memory zeroed except the font table, PC at ProgramStart, and beep wired to the
// given callback. beep is invoked with no arguments and no return value, synchronously, from TickTimers;
// it must be non-blocking or the host must accept the latency. beep may be nil, in which case sound timer
// expiry is silently ignored.
func New(beep func(), opts ...Option) *VM {
	vm := &VM{beep: beep}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.memory == nil {
		vm.memory = make([]byte, DefaultRAM)
	}
	if vm.rng == nil {
		vm.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	vm.reset()
	return vm
}

// reset zeroes all VM state, rewrites the font table at address 0, and sets PC to ProgramStart. Called by
// Load on every invocation, per spec: a VM freshly constructed but never Load-ed is already in this state.
func (vm *VM) reset() {
	for i := range vm.memory {
		vm.memory[i] = 0
	}
	copy(vm.memory, FontSet[:])

	vm.v = [numRegisters]byte{}
	vm.i = 0
	vm.pc = ProgramStart
	vm.stack = [stackSize]uint16{}
	vm.sp = 0
	vm.delayTimer = 0
	vm.soundTimer = 0
	vm.screen = [screenHeight][screenWidth]bool{}
	vm.keys = [numKeys]bool{}
}

// Load resets the VM and copies image byte-for-byte into memory starting at ProgramStart (0x200), then sets
// PC to address. address normally equals ProgramStart; passing a different value changes where execution
// begins without changing where the image is written.
//
// The image is always written at 0x200 regardless of address: this mirrors the behavior of the Chip-8
// interpreter this VM is modeled on, where load's copy destination is fixed and only the initial PC is
// configurable. Hosts that want the image itself to live elsewhere must build the full memory image
// themselves and pass address=0x200.
func (vm *VM) Load(image []byte, address uint16) error {
	if ProgramStart+len(image) > len(vm.memory) {
		return &Error{Kind: ErrImageTooLarge, msg: fmt.Sprintf("image of %d bytes at 0x200 exceeds %d-byte memory", len(image), len(vm.memory))}
	}
	vm.reset()
	copy(vm.memory[ProgramStart:], image)
	vm.pc = address
	return nil
}

// Tick performs one fetch-decode-execute step. If PC+1 lies past the end of memory, Tick returns a
// memory-out-of-bounds error without mutating state further. On a VM with no program loaded, the zeroed
// memory at PC decodes as NOP, so Tick only advances PC and returns nil.
func (vm *VM) Tick() error {
	op, err := vm.fetch()
	if err != nil {
		return err
	}
	return vm.execute(op)
}

// fetch reads the big-endian 16-bit opcode at PC and PC+1 and advances PC by 2.
func (vm *VM) fetch() (uint16, error) {
	if int(vm.pc)+1 >= len(vm.memory) {
		return 0, &Error{Kind: ErrMemoryOutOfBounds, msg: fmt.Sprintf("fetch at pc=0x%04X out of bounds", vm.pc)}
	}
	op := uint16(vm.memory[vm.pc])<<8 | uint16(vm.memory[vm.pc+1])
	vm.pc += 2
	return op, nil
}

// TickTimers decrements the delay and sound timers by one, in that order, if they are non-zero. If the
// sound timer is exactly 1 before decrementing, the beep callback is invoked exactly once before the
// decrement completes: the beep event is strictly edge-triggered on the 1->0 transition.
func (vm *VM) TickTimers() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}
	if vm.soundTimer > 0 {
		if vm.soundTimer == 1 && vm.beep != nil {
			vm.beep()
		}
		vm.soundTimer--
	}
}

// KeyEvent records a key press or release for the given hex key code (0x0-0xF). KeyEvent with code > 0xF
// returns a bad-key-code error and does not mutate key state.
func (vm *VM) KeyEvent(kind KeyEventType, code byte) error {
	if code > 0xF {
		return &Error{Kind: ErrBadKeyCode, msg: fmt.Sprintf("key code 0x%X out of range", code)}
	}
	vm.keys[code] = kind == KeyPressed
	return nil
}

// ScreenData returns a snapshot of the 64x32 display. The returned value is a copy: mutating it has no
// effect on the VM, and the VM's own state may continue to change after this call returns.
func (vm *VM) ScreenData() [screenHeight][screenWidth]bool {
	return vm.screen
}

// Snapshot is a read-only view of register/PC/SP/I state, useful for a host status line or test assertions
// without reaching into VM's unexported fields. It is not a debugger: there is no breakpoint, step, or trace
// facility here.
type Snapshot struct {
	PC         uint16
	I          uint16
	SP         int
	V          [numRegisters]byte
	DelayTimer byte
	SoundTimer byte
}

// Snapshot returns the VM's current register file, PC, SP, I and timers.
func (vm *VM) Snapshot() Snapshot {
	return Snapshot{
		PC:         vm.pc,
		I:          vm.i,
		SP:         vm.sp,
		V:          vm.v,
		DelayTimer: vm.delayTimer,
		SoundTimer: vm.soundTimer,
	}
}
