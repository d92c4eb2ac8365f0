package event

// Response is the value an action handler returns to Frame.io. A Message
// shows a notification; a Form prompts the user for input and triggers a
// follow-up callback with the submitted data. Webhook handlers return no
// response body.
type Response interface {
	responseMarker()
}

// Message is a simple notification shown to the user after an action runs.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (Message) responseMarker() {}

// Form prompts the user with input fields. The submitted values arrive in
// the Data map of the follow-up ActionEvent.
type Form struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

func (Form) responseMarker() {}

// Field is a single form input.
type Field interface {
	fieldMarker()
}

// TextField is a free-text input.
type TextField struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

func (TextField) fieldMarker() {}

// NewTextField returns a text field with the type tag set.
func NewTextField(label, name, value string) TextField {
	return TextField{Type: "text", Label: label, Name: name, Value: value}
}

// SelectOption is one choice in a SelectField.
type SelectOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SelectField is a dropdown of predefined options.
type SelectField struct {
	Type    string         `json:"type"`
	Label   string         `json:"label"`
	Name    string         `json:"name"`
	Value   string         `json:"value,omitempty"`
	Options []SelectOption `json:"options"`
}

func (SelectField) fieldMarker() {}

// NewSelectField returns a select field with the type tag set.
func NewSelectField(label, name, value string, options []SelectOption) SelectField {
	return SelectField{Type: "select", Label: label, Name: name, Value: value, Options: options}
}

// CheckboxField is a boolean toggle.
type CheckboxField struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

func (CheckboxField) fieldMarker() {}

// NewCheckboxField returns a checkbox field with the type tag set.
func NewCheckboxField(label, name string, value bool) CheckboxField {
	return CheckboxField{Type: "checkbox", Label: label, Name: name, Value: value}
}

// LinkField renders a clickable URL.
type LinkField struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (LinkField) fieldMarker() {}

// NewLinkField returns a link field with the type tag set.
func NewLinkField(label, name, url string) LinkField {
	return LinkField{Type: "link", Label: label, Name: name, Value: url}
}
