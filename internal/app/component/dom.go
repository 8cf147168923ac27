package component

// Element IDs.
const (
	IDFlash      = "flash"
	IDLoginForm  = "login-form"
	IDLogoutForm = "logout-form"
	IDNewTask    = "new-task"
	IDEditTask   = "edit-task"
	IDTaskList   = "task-list"
)

// Form field names.
const (
	FieldCSRF     = "_csrf"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldTitle    = "title"
	FieldNotes    = "notes"
	FieldNext     = "next"
)

// Data attribute names with prefix (for use in CSS selectors and tests).
const (
	DataAttrID     = "data-id"
	DataAttrDone   = "data-done"
	DataAttrStatus = "data-status"
)

// CSS class names.
const (
	ClassSiteHeader  = "site-header"
	ClassSiteTitle   = "site-title"
	ClassFilters     = "filters"
	ClassFilterError = "filter-error"
	ClassTask        = "task"
	ClassToggle      = "toggle"
	ClassDelete      = "delete"
)
