package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	errorLogger *log.Logger
	debugLogger *log.Logger
	// debugPacketDumpLen limits how many bytes of a packet payload are logged.
	// A value of 0 dumps the entire payload.
	debugPacketDumpLen = 64
)

func logDir() string {
	return filepath.Join(baseDir, "logs")
}

func rotatingFile(name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir(), name),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     14,
	}
}

func setupLogging(debug bool) {
	if err := os.MkdirAll(logDir(), 0755); err != nil {
		fmt.Printf("could not create log directory: %v\n", err)
		errorLogger = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		w := io.MultiWriter(os.Stdout, rotatingFile("error.log"))
		errorLogger = log.New(w, "", log.LstdFlags)
		log.SetOutput(w)
	}
	setDebugLogging(debug)
}

func logError(format string, v ...interface{}) {
	if errorLogger != nil {
		errorLogger.Printf(format, v...)
	}
}

func logDebug(format string, v ...interface{}) {
	if debugLogger != nil {
		debugLogger.Printf(format, v...)
	}
}

func logDebugPacket(prefix string, data []byte) {
	if debugLogger == nil {
		return
	}
	n := len(data)
	dump := data
	if debugPacketDumpLen > 0 && n > debugPacketDumpLen {
		dump = data[:debugPacketDumpLen]
	}
	debugLogger.Printf("%s len=%d payload=% x", prefix, n, dump)
}

func setDebugLogging(enabled bool) {
	if !enabled {
		debugLogger = nil
		return
	}
	var w io.Writer = os.Stdout
	if err := os.MkdirAll(logDir(), 0755); err == nil {
		w = io.MultiWriter(os.Stdout, rotatingFile("debug.log"))
	}
	debugLogger = log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}
