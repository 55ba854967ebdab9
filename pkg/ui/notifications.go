package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"wallharvest/pkg/harvest"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandRunner runs an external program and waits for it
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct {
	run commandRunner
}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return l.run("notify-send", "--app-name=wallharvest", title, message)
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct {
	run commandRunner
}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	return m.run("osascript", "-e", script)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct {
	run commandRunner
}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("wallharvest").Show($toast)
	`, powerShellString(title), powerShellString(message))

	return w.run("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// powerShellString quotes s as a single-quoted PowerShell literal
func powerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Notifier announces finished runs on the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform. On platforms
// without a notification command it does nothing.
func NewNotifier() *Notifier {
	return newNotifier(runtime.GOOS, runCommand)
}

func newNotifier(goos string, run commandRunner) *Notifier {
	var sender NotificationSender

	switch goos {
	case "linux", "freebsd", "openbsd":
		sender = &LinuxNotificationSender{run: run}
	case "darwin":
		sender = &MacOSNotificationSender{run: run}
	case "windows":
		sender = &WindowsNotificationSender{run: run}
	}

	return &Notifier{sender: sender}
}

// NotifyRun sends a notification summarising a finished run
func (n *Notifier) NotifyRun(s *harvest.Summary, runErr error) error {
	if n == nil || n.sender == nil || s == nil {
		return nil
	}
	title, message := runNotification(s, runErr)
	return n.sender.Send(title, message)
}

func runNotification(s *harvest.Summary, runErr error) (string, string) {
	totals := s.Totals()
	counts := fmt.Sprintf("%d downloaded, %d skipped, %d failed", totals.Downloaded, totals.Skipped, totals.Failed)

	switch {
	case s.Interrupted:
		return "wallharvest interrupted", counts
	case runErr != nil:
		return "wallharvest failed", runErr.Error()
	case totals.Failed > 0:
		return "wallharvest finished with failures", counts
	default:
		return "wallharvest finished", counts
	}
}
