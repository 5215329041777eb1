package tracker

import "fmt"

func StartedMessage(p Project) string {
	return fmt.Sprintf("Started tracking time for '%s' with ID %d", p.Title, p.ID)
}

func PausedMessage(id int) string {
	return fmt.Sprintf("Paused project with ID: %d", id)
}

func ResumedMessage(id int) string {
	return fmt.Sprintf("Resumed project with ID: %d", id)
}

func StoppedMessage(id int) string {
	return fmt.Sprintf("Stopped project with ID: %d. The project is now complete.", id)
}
