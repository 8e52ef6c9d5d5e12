// Package tui is the terminal front end: a contact table, the open thread
// with its composer, and a status header, all redrawn from chat session
// snapshots whenever the session publishes a change on the bus.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/schoolchat/internal/bus"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/status"
	"github.com/matheus3301/schoolchat/internal/tui/keys"
	"github.com/matheus3301/schoolchat/internal/tui/model"
	"github.com/matheus3301/schoolchat/internal/tui/ui"
	"github.com/matheus3301/schoolchat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page ids.
const (
	pageContacts = "contacts"
	pageThread   = "thread"
	pageHelp     = "help"
)

// Options configure the TUI.
type Options struct {
	Profile string
	// OpenContact is selected on start, before the contact list may have
	// finished loading.
	OpenContact string
}

// App is the main TUI application shell.
type App struct {
	app     *tview.Application
	session *chat.Session
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	opts    Options

	theme    *ui.Theme
	root     *tview.Flex
	pages    *ui.Pages
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.ProfileInfo
	prompt   *ui.Prompt
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	contacts *views.ContactList
	thread   *views.ThreadView
	help     *views.HelpView
	registry *keys.Registry

	promptShown bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the TUI over a running session.
func New(s *chat.Session, b *bus.Bus, m *status.Machine, logger *zap.Logger, opts Options) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	a := &App{
		app:      tview.NewApplication(),
		session:  s,
		bus:      b,
		machine:  m,
		logger:   logger,
		opts:     opts,
		theme:    theme,
		pages:    ui.NewPages(),
		crumbs:   ui.NewCrumbs(theme),
		menu:     ui.NewMenu(theme),
		info:     ui.NewProfileInfo(theme),
		prompt:   ui.NewPrompt(theme),
		flash:    ui.NewFlashModel(nil),
		flashBar: ui.NewFlashBar(theme),
		contacts: views.NewContactList(theme),
		thread:   views.NewThreadView(theme),
		help:     views.NewHelpView(theme),
		registry: keys.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.thread.SetReadOnly(!s.Identity().CanSend())
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(
		keys.OnRune("quit", 'q', a.Stop),
		keys.OnRune("help", '?', func() { a.pages.Push(pageHelp) }),
		keys.OnRune("command", ':', func() { a.showPrompt(ui.PromptCommand) }),
	)
	a.registry.AddPage(pageContacts,
		keys.OnRune("filter", '/', func() { a.showPrompt(ui.PromptFilter) }),
		keys.OnRune("reload", 'r', a.reload),
	)
	a.registry.AddPage(pageThread,
		keys.OnRune("compose", 'i', func() {
			if !a.thread.ReadOnly() {
				a.app.SetFocus(a.thread.Composer())
			}
		}),
	)
}

func (a *App) setupCallbacks() {
	a.contacts.SetOnSelect(a.openContact)

	a.thread.SetOnDraft(a.session.SetDraft)
	a.thread.SetOnSend(func(text string) {
		go func() {
			// Failures arrive as bus events and are flashed there.
			_ = a.session.Send(a.ctx, text)
		}()
	})

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.contacts.SetFilter(text)
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.runCommand(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.contacts.SetFilter("")
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(top ui.Page, trail []string) {
		a.crumbs.Update(trail)
		a.menu.Update(top.Hints())
		a.app.SetFocus(top)
	})
}

func (a *App) setupLayout() {
	a.pages.Register(pageContacts, a.contacts)
	a.pages.Register(pageThread, a.thread)
	a.pages.Register(pageHelp, a.help)

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 3, false).
		AddItem(ui.NewLogo(a.theme), 12, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 4, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.captureInput)
	a.pages.Reset(pageContacts)
}

func (a *App) captureInput(event *tcell.EventKey) *tcell.EventKey {
	if a.promptShown {
		return event
	}
	page := a.pages.Current()

	if event.Key() == tcell.KeyEscape {
		if a.app.GetFocus() == a.thread.Composer() {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		if a.pages.Pop() != "" {
			a.refresh()
			return nil
		}
		return event
	}

	// Text inputs get every other key.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}
	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.contacts.Filter())
	}
	a.promptShown = true
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptShown = false
	a.root.ResizeItem(a.prompt, 0, 0)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top)
	}
}

func (a *App) runCommand(text string) {
	cmd, err := ParseCommand(text)
	if err != nil {
		a.flash.Warn(err.Error())
		a.refresh()
		return
	}
	switch cmd.Name {
	case CmdOpen:
		a.requestContact(cmd.Args)
	case CmdReload:
		a.reload()
	case CmdHelp:
		a.pages.Push(pageHelp)
	case CmdQuit:
		a.Stop()
	}
}

// openContact activates a contact picked from the table.
func (a *App) openContact(id string) {
	a.thread.SetDraft("")
	a.pages.Push(pageThread)
	go func() {
		if err := a.session.Open(a.ctx, id); err != nil && !errors.Is(err, chat.ErrClosed) {
			a.flash.Err(err)
			a.app.QueueUpdateDraw(a.refresh)
		}
	}()
}

// requestContact selects a contact by id even while the list is loading.
func (a *App) requestContact(id string) {
	a.thread.SetDraft("")
	a.pages.Push(pageThread)
	go a.session.RequestContact(a.ctx, id)
}

func (a *App) reload() {
	a.flash.Info("Reloading…")
	go a.session.Load(a.ctx)
}

// refresh redraws every pane from a fresh snapshot. It must run on the UI
// goroutine.
func (a *App) refresh() {
	snap := a.session.Snapshot()
	id := a.session.Identity()

	a.contacts.Update(snap)
	a.thread.SetTitle(model.ThreadTitle(snap))
	a.thread.Update(model.ThreadLines(a.session.Rows(), a.session.Location()), model.EmptyThreadHint(snap))

	link := status.Disconnected
	if a.machine != nil {
		link = a.machine.Current()
	}
	a.info.Update(ui.ProfileData{
		Profile:  a.opts.Profile,
		User:     id.Name,
		Role:     id.Role,
		Link:     string(link),
		LinkUp:   link == status.Connected,
		Contacts: len(snap.Contacts),
		Unread:   model.UnreadTotal(snap.Contacts),
		Loading:  snap.Loading,
	})
	a.flashBar.Update(a.flash.Current())
	a.crumbs.Update(a.pages.Trail())
}

// handleEvent reacts to a bus event on the bus goroutine; drawing is
// queued onto the UI goroutine.
func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindSendFailed:
		if f, ok := evt.Payload.(chat.SendFailure); ok {
			a.flash.Err(errors.New("message not sent: " + f.Err.Error()))
		}
		draft := a.session.Snapshot().Draft
		a.app.QueueUpdateDraw(func() {
			a.thread.SetDraft(draft)
			a.refresh()
		})
		return
	case bus.KindSendAck:
		a.flash.Info("Sent")
	case bus.KindResolutionChanged:
		if rc, ok := evt.Payload.(chat.ResolutionChange); ok && rc.Pending == chat.PendingUnresolvable {
			a.flash.Warn("No contact with id " + rc.ContactID)
		}
	case bus.KindRealtimeStatus:
		if c, ok := evt.Payload.(status.Change); ok && c.To == status.Degraded {
			a.flash.Warn("Live updates unavailable, retrying in the background")
		}
	}
	a.app.QueueUpdateDraw(a.refresh)
}

func (a *App) watch() {
	events, unsub := a.bus.Subscribe("", 256)
	defer unsub()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			a.handleEvent(evt)
		case <-ticker.C:
			// Expire flash messages and keep labels like "Today" current.
			a.app.QueueUpdateDraw(a.refresh)
		}
	}
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	a.refresh()
	go a.watch()
	if a.opts.OpenContact != "" {
		a.requestContact(a.opts.OpenContact)
	}
	defer a.cancel()
	return a.app.Run()
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
