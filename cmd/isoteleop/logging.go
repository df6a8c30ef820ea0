package main

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var logToFile bool

func setupLogging(path string) {
	log.SetFlags(log.LstdFlags)
	if path == "" {
		log.SetOutput(os.Stderr)
		return
	}
	logToFile = true
	log.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})
}

// quietLogs silences stderr logging while a full-screen TUI owns the terminal.
func quietLogs() {
	if !logToFile {
		log.SetOutput(io.Discard)
	}
}
