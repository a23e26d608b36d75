package ui

// helpMarkdown is the overlay shown on '?'.
const helpMarkdown = `# sparcl dashboard

Keys act on the active page; tabs switch pages.

## Global

| key | action |
|-----|--------|
| tab / shift+tab | next / previous page |
| 1 2 3 | jump to settings, services, models |
| r | reload settings from storage |
| t | toggle light/dark theme |
| ? | toggle this help |
| q / ctrl+c | quit |

## Settings

| key | action |
|-----|--------|
| up / down | move |
| space / enter | toggle or cycle the value |
| left / right | cycle modes, adjust the marker width |
| u | reset the setting to its default |

## Services

| key | action |
|-----|--------|
| up / down | move |
| enter | select the geopose service, toggle a content service |

## Models

| key | action |
|-----|--------|
| up / down | move |
| x | export the model as OBJ into the workspace |

Settings edited elsewhere, by the CLI or by hand, show up here live
while the dashboard is open.
`
