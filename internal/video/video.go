// Package video is the pixelgl-based host display for the chip8 VM. It owns the window, polls
// chip8.VM.ScreenData() once per frame, and translates pixelgl key events into chip8.VM.KeyEvent calls. It
// holds no chip8 state of its own beyond a hex keymap.
package video

import (
	"fmt"
	"time"

	"github.com/bradford-hamilton/chippy8/internal/chip8"
	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"
)

const (
	gridWidth  float64 = chip8Width
	gridHeight float64 = chip8Height

	// chip8Width/chip8Height mirror the VM's fixed 64x32 display; kept as separate constants here so this
	// package never has to import unexported chip8 internals to know its own grid size.
	chip8Width  = 64
	chip8Height = 32

	screenWidth  float64 = 1024
	screenHeight float64 = 768

	// keyRepeatDur throttles how often a held key re-fires a press event, matching the teacher's feel for
	// games that poll EX9E every frame without an OS-level key-repeat signal.
	keyRepeatDur = time.Second / 5
)

// Window wraps a pixelgl window, a hex keymap, and per-key repeat timers.
type Window struct {
	*pixelgl.Window
	keyMap   map[byte]pixelgl.Button
	keysDown [16]*time.Ticker
}

// NewWindow creates and configures a pixelgl window sized for a 64x32 Chip-8 display, scaled up for
// visibility, with the conventional 4x4 keypad layout mapped onto a QWERTY keyboard.
func NewWindow(title string) (*Window, error) {
	cfg := pixelgl.WindowConfig{
		Title:  title,
		Bounds: pixel.R(0, 0, screenWidth, screenHeight),
		VSync:  true,
	}
	w, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return nil, fmt.Errorf("video: creating window: %w", err)
	}

	return &Window{
		Window: w,
		keyMap: map[byte]pixelgl.Button{
			0x1: pixelgl.Key1, 0x2: pixelgl.Key2, 0x3: pixelgl.Key3, 0xC: pixelgl.Key4,
			0x4: pixelgl.KeyQ, 0x5: pixelgl.KeyW, 0x6: pixelgl.KeyE, 0xD: pixelgl.KeyR,
			0x7: pixelgl.KeyA, 0x8: pixelgl.KeyS, 0x9: pixelgl.KeyD, 0xE: pixelgl.KeyF,
			0xA: pixelgl.KeyZ, 0x0: pixelgl.KeyX, 0xB: pixelgl.KeyC, 0xF: pixelgl.KeyV,
		},
	}, nil
}

// DrawScreen renders the VM's current 64x32 bitmap, scaled to fill the window.
func (w *Window) DrawScreen(screen [chip8Height][chip8Width]bool) {
	w.Clear(colornames.Black)
	draw := imdraw.New(nil)
	draw.Color = pixel.RGB(1, 1, 1)

	cellW, cellH := screenWidth/gridWidth, screenHeight/gridHeight
	for row := 0; row < chip8Height; row++ {
		for col := 0; col < chip8Width; col++ {
			if !screen[row][col] {
				continue
			}
			// pixelgl's origin is bottom-left; the VM's row 0 is the top row, so flip vertically.
			y := float64(chip8Height-1-row) * cellH
			x := float64(col) * cellW
			draw.Push(pixel.V(x, y))
			draw.Push(pixel.V(x+cellW, y+cellH))
			draw.Rectangle(0)
		}
	}
	draw.Draw(w)
	w.Update()
}

// PollInput inspects the window's key state and feeds press/release edges into vm via KeyEvent. Held keys
// re-fire a press every keyRepeatDur so EX9E-polling games see repeated input without OS-level auto-repeat.
func (w *Window) PollInput(vm *chip8.VM) {
	for code, button := range w.keyMap {
		switch {
		case w.JustPressed(button):
			if w.keysDown[code] == nil {
				w.keysDown[code] = time.NewTicker(keyRepeatDur)
			}
			vm.KeyEvent(chip8.KeyPressed, code)
		case w.JustReleased(button):
			if w.keysDown[code] != nil {
				w.keysDown[code].Stop()
				w.keysDown[code] = nil
			}
			vm.KeyEvent(chip8.KeyReleased, code)
		}

		if w.keysDown[code] == nil {
			continue
		}
		select {
		case <-w.keysDown[code].C:
			vm.KeyEvent(chip8.KeyPressed, code)
		default:
		}
	}
}
