package commands

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/widget"
)

// controller is the part of a session the console drives
type controller interface {
	Widget() *widget.Widget
	Reconnect() error
	Comments() []crdt.Record
}

// console turns stdin lines into widget input and doubles as the widget's
// Host, so prompts read the next line from the same stream
type console struct {
	lines <-chan string
	done  <-chan struct{}
	ctl   controller
	open  func(url string) error
}

func newConsole(lines <-chan string, done <-chan struct{}) *console {
	return &console{lines: lines, done: done, open: openBrowser}
}

const consoleHelp = `Commands:
  toggle     expand or collapse the panel
  menu [n]   open the context menu, or pick entry n
  escape     close the menu
  follow     toggle follow-cursor mode
  hush       toggle heartbeat pulses
  users      toggle the users row
  summon     invite others to this page
  server     change the sync server
  append     append a test comment
  comments   list comments
  view       show the widget state
  reconnect  reconnect the heartbeat
  quit       stop the session`

// dispatch runs one command line. It returns true when the session should end.
func (c *console) dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	w := c.ctl.Widget()
	if w == nil {
		pterm.Warning.Println("Session is not running")
		return fields[0] == "quit" || fields[0] == "exit"
	}

	switch fields[0] {
	case "toggle":
		w.Toggle()
	case "menu":
		c.menu(w, fields[1:])
	case "escape", "esc":
		w.KeyDown("Escape")
	case "follow":
		w.ToggleFollow()
		pterm.Info.Printfln("Follow cursor: %v", w.State().FollowMode)
	case "hush":
		w.ToggleHush()
		pterm.Info.Printfln("Heartbeat hushed: %v", w.State().HushHeartbeat)
	case "users":
		w.ToggleUsers()
		pterm.Info.Printfln("Users activity: %v", w.State().ShowUsers)
	case "summon":
		w.Summon()
	case "server":
		w.ChangeServer()
	case "append":
		w.AppendTest()
	case "comments":
		printComments(c.ctl.Comments())
	case "view", "status":
		printView(w.View())
	case "reconnect":
		if err := c.ctl.Reconnect(); err != nil {
			pterm.Error.Printfln("Reconnect failed: %v", err)
		}
	case "help", "?":
		pterm.Println(consoleHelp)
	case "quit", "exit":
		return true
	default:
		pterm.Warning.Printfln("Unknown command %q (try help)", fields[0])
	}
	return false
}

func (c *console) menu(w *widget.Widget, args []string) {
	if !w.State().MenuOpen {
		w.ContextMenu(widget.TargetOrb, w.View().Orb.Center())
	}
	items := w.View().MenuItems
	if len(args) == 0 {
		for i, it := range items {
			pterm.Printfln("  %d. %s", i+1, it.Label)
		}
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(items) {
		pterm.Warning.Printfln("No menu entry %q", args[0])
		return
	}
	w.Select(items[n-1].Action)
}

// Prompt prints msg and reads the next line. An empty line keeps initial;
// a closed stdin or shutdown counts as cancel.
func (c *console) Prompt(msg, initial string) (string, bool) {
	pterm.Printf("%s [%s]: ", msg, initial)
	var line string
	select {
	case l, ok := <-c.lines:
		if !ok {
			return "", false
		}
		line = l
	case <-c.done:
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return initial, true
	}
	return line, true
}

func (c *console) Alert(msg string) {
	pterm.Warning.Println(msg)
}

func (c *console) OpenURL(url string) error {
	pterm.Info.Printfln("Opening %s", url)
	return c.open(url)
}

// openBrowser attempts to open the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func printView(v widget.View) {
	state := "expanded"
	if v.State.Minimized {
		state = "minimized"
	}
	data := pterm.TableData{
		{"Widget", state},
		{"Status", v.Rows.Status},
		{"Users", v.Rows.Users},
		{"Energy", v.Rows.Energy},
		{"Heartbeat", v.Rows.Heartbeat},
		{"CRDT", v.Rows.CRDT},
		{"Sync server", v.Footer.Title},
		{"Follow", fmt.Sprintf("%v (active %v)", v.State.FollowMode, v.FollowActive)},
		{"Orb", fmt.Sprintf("%.0f,%.0f", v.Orb.Left, v.Orb.Top)},
	}
	if v.HUD.Visible {
		data = append(data, []string{"HUD", v.HUD.Text})
	}
	_ = pterm.DefaultTable.WithData(data).Render()
}

func printComments(list []crdt.Record) {
	if len(list) == 0 {
		pterm.Info.Println("No comments")
		return
	}
	data := pterm.TableData{{"ID", "Text", "Other fields"}}
	for _, rec := range list {
		data = append(data, []string{rec.ID(), rec.Text(), extraFields(rec)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func extraFields(rec crdt.Record) string {
	var keys []string
	for k := range rec {
		if k != "id" && k != "text" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, rec[k])
	}
	return strings.Join(parts, " ")
}
