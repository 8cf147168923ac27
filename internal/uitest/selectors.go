package uitest

import (
	"fmt"

	"github.com/stolasapp/todotoday/internal/app/component"
)

// CSS selectors built from component constants.
// These ensure test selectors stay in sync with the component DOM structure.

// Element selectors.
var (
	// SelectorFlash selects the one-time flash message by ID.
	SelectorFlash = "#" + component.IDFlash

	// SelectorSiteTitle selects the site title by class.
	SelectorSiteTitle = "header." + component.ClassSiteHeader + " ." + component.ClassSiteTitle

	// SelectorFilters selects the filter presets by class.
	SelectorFilters = "nav." + component.ClassFilters

	// SelectorTaskList selects the task list by ID.
	SelectorTaskList = "#" + component.IDTaskList

	// SelectorTaskItem selects any task in the list.
	SelectorTaskItem = SelectorTaskList + " > li." + component.ClassTask
)

// Form selectors.
var (
	// SelectorUsername selects the login username input.
	SelectorUsername = formField(component.IDLoginForm, component.FieldUsername)

	// SelectorPassword selects the login password input.
	SelectorPassword = formField(component.IDLoginForm, component.FieldPassword)

	// SelectorLoginButton selects the login submit button.
	SelectorLoginButton = "#" + component.IDLoginForm + " button[type='submit']"

	// SelectorLogoutButton selects the logout submit button.
	SelectorLogoutButton = "#" + component.IDLogoutForm + " button[type='submit']"

	// SelectorNewTitle selects the new task title input.
	SelectorNewTitle = formField(component.IDNewTask, component.FieldTitle)

	// SelectorNewNotes selects the new task notes textarea.
	SelectorNewNotes = "#" + component.IDNewTask + " textarea[name='" + component.FieldNotes + "']"

	// SelectorNewButton selects the new task submit button.
	SelectorNewButton = "#" + component.IDNewTask + " button[type='submit']"
)

func formField(formID, name string) string {
	return fmt.Sprintf("#%s input[name='%s']", formID, name)
}

// FlashWithStatus returns a selector for a flash message of the given status.
func FlashWithStatus(status string) string {
	return fmt.Sprintf("%s[%s='%s']", SelectorFlash, component.DataAttrStatus, status)
}

// TaskItemByDone returns a selector for list items in the given done state.
func TaskItemByDone(done bool) string {
	return fmt.Sprintf("%s[%s='%t']", SelectorTaskItem, component.DataAttrDone, done)
}

// TaskItemByID returns a selector for the list item of the given task.
func TaskItemByID(taskID string) string {
	return fmt.Sprintf("%s[%s='%s']", SelectorTaskItem, component.DataAttrID, taskID)
}

// TaskButton returns a selector for a button of the given class inside the
// task with the given ID.
func TaskButton(taskID, class string) string {
	return TaskItemByID(taskID) + " button." + class
}
