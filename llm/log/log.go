/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log is the leveled, printf-style logger shared by all packages.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level = logrus.Level

const (
	ErrorLevel Level = logrus.ErrorLevel
	InfoLevel  Level = logrus.InfoLevel
	DebugLevel Level = logrus.DebugLevel
)

var std = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	return l
}

// SetLogLevel changes the minimum level that is written.
func SetLogLevel(level Level) {
	std.SetLevel(level)
}

// ParseLevel accepts "debug", "info" and "error"; anything else is InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func IsDebug() bool {
	return std.IsLevelEnabled(DebugLevel)
}

func Debug(format string, args ...any) {
	std.Debugf(trim(format), args...)
}

func Info(format string, args ...any) {
	std.Infof(trim(format), args...)
}

func Error(format string, args ...any) {
	std.Errorf(trim(format), args...)
}

// logrus terminates every entry itself.
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}
