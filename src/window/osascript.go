package window

import (
	"fmt"
	"strconv"
	"strings"

	"screen-table-scanner/src/screenshot"
)

// System Events scripts used on macOS. The list script prints one
// "app<TAB>title" line per titled window, skipping our own process and
// SystemUIServer.
const listWindowsScript = `
tell application "System Events"
	set out to ""
	repeat with proc in processes
		try
			set procName to name of proc
			if procName is not "screen-table" and procName is not "SystemUIServer" then
				repeat with win in windows of proc
					try
						set winTitle to title of win
						if winTitle is not "" then
							set out to out & procName & tab & winTitle & linefeed
						end if
					end try
				end repeat
			end if
		end try
	end repeat
	return out
end tell
`

func boundsScript(app, title string) string {
	return fmt.Sprintf(`
tell application "System Events"
	tell process "%s"
		repeat with win in windows
			try
				if title of win is "%s" then
					set winPos to position of win
					set winSize to size of win
					return ((item 1 of winPos) as text) & "," & ((item 2 of winPos) as text) & "," & ((item 1 of winSize) as text) & "," & ((item 2 of winSize) as text)
				end if
			end try
		end repeat
	end tell
end tell
`, appleScriptEscape(app), appleScriptEscape(title))
}

func appleScriptEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func parseWindowList(out string) []Info {
	var list []Info
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		app, title, ok := strings.Cut(line, "\t")
		if !ok {
			list = append(list, Info{Title: strings.TrimSpace(line)})
			continue
		}
		list = append(list, Info{App: strings.TrimSpace(app), Title: strings.TrimSpace(title)})
	}
	return list
}

// parseBounds parses "left,top,width,height".
func parseBounds(out string) (screenshot.Region, error) {
	parts := strings.Split(strings.TrimSpace(out), ",")
	if len(parts) != 4 {
		return screenshot.Region{}, fmt.Errorf("%w: unexpected geometry %q", ErrNotFound, strings.TrimSpace(out))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return screenshot.Region{}, fmt.Errorf("%w: unexpected geometry %q", ErrNotFound, strings.TrimSpace(out))
		}
		v[i] = n
	}
	return screenshot.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
