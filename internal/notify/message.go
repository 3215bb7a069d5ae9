package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nhle/taskd/internal/model"
)

// StatusChangeMessage describes a transition. The output depends only on
// its arguments.
func StatusChangeMessage(task model.Task, previousStatus string) string {
	msg := fmt.Sprintf("Task \"%s\" changed status from %s to %s.",
		task.Name, previousStatus, task.Status)
	if d := strings.TrimSpace(task.Description); d != "" {
		msg += " Description: " + d
	}
	return msg
}

// StatusChangeSubject is the email subject for a transition.
func StatusChangeSubject(task model.Task) string {
	return fmt.Sprintf("Task status updated: %s", task.Name)
}

// ReminderSubject is the email subject for a deadline reminder.
func ReminderSubject(task model.Task) string {
	return fmt.Sprintf("Reminder: task due soon - %s", task.Name)
}

// HoursUntil returns the time left until due rounded to the nearest hour.
func HoursUntil(due, now time.Time) int {
	return int(math.Round(due.Sub(now).Hours()))
}

// ReminderMessage is the plain-text body of a deadline reminder.
func ReminderMessage(user model.User, task model.Task, hoursLeft int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\n", user.Name)
	fmt.Fprintf(&b, "This is a reminder that the task \"%s\" is due in %d hours.\n\n", task.Name, hoursLeft)
	fmt.Fprintf(&b, "Description: %s\n", task.Description)
	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	if task.DueAt != nil {
		fmt.Fprintf(&b, "Due: %s\n", task.DueAt.Format(time.RFC1123))
	}

	return b.String()
}
