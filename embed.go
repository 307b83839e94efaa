package chatwidget

import "embed"

// TemplateFS contains the embedded HTML templates of the browser widget: the page layout, the page
// itself and the partials for one message row and the typing row.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the stylesheet and the script that relays clicks, Enter presses and server-sent
// view updates.
//
//go:embed static/*
var StaticFS embed.FS

// IntentsFS holds the default intent catalogue used when no intents file is configured.
//
//go:embed intents.json
var IntentsFS embed.FS

// DefaultIntentsFile is the name of the default catalogue inside IntentsFS.
const DefaultIntentsFile = "intents.json"
