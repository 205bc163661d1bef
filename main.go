package main

import (
	"github.com/bradford-hamilton/chippy8/cmd"
	"github.com/faiface/pixel/pixelgl"
)

func main() {
	// pixelgl needs access to the main thread, and cobra's command dispatch may create a window
	// (the `run` command, unless --headless), so Execute has to happen inside pixelgl.Run's callback.
	pixelgl.Run(cmd.Execute)
}
