package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrooms/internal/core"
	"github.com/vovakirdan/chatrooms/internal/hub"
	"github.com/vovakirdan/chatrooms/internal/rooms"
)

const prompt = "> "

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// Console is a line-oriented front end over one hub session.
type Console struct {
	hub    *hub.Hub
	client *hub.Client
	out    io.Writer
	log    *zerolog.Logger
}

// New creates a console driving client.
func New(h *hub.Hub, client *hub.Client, out io.Writer, logger *zerolog.Logger) *Console {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Console{hub: h, client: client, out: out, log: logger}
}

// Run reads commands from in until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	c.greet()
	for {
		fmt.Fprint(c.out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return <-scanErr
			}
			if err := c.Exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

func (c *Console) greet() {
	if user, ok := c.client.Identity.CurrentUser(); ok {
		fmt.Fprintf(c.out, "welcome back, %s\n", user.Username)
	} else {
		fmt.Fprintln(c.out, "not signed in; try login, signup or anon")
	}
	fmt.Fprintln(c.out, `type "help" for commands`)
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c.log.Debug().Str("command", cmd).Msg("console command")

	switch cmd {
	case "login":
		if len(args) != 2 {
			return usage("login <email> <password>")
		}
		user, err := c.client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "logged in as %s\n", user.Username)
	case "signup":
		if len(args) != 3 {
			return usage("signup <email> <username> <password>")
		}
		user, err := c.client.Signup(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "signed up as %s\n", user.Username)
	case "anon":
		user, err := c.client.JoinAnonymously(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "joined anonymously as %s\n", user.Username)
	case "logout":
		if err := c.client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "logged out")
	case "whoami":
		c.whoami()
	case "rooms":
		return c.listRooms(ctx)
	case "create":
		return c.createRoom(ctx, args)
	case "join":
		return c.joinRoom(ctx, args)
	case "leave":
		c.client.LeaveRoom()
		fmt.Fprintln(c.out, "left room")
	case "say":
		if len(args) == 0 {
			return usage("say <text>")
		}
		return c.send(ctx, strings.Join(args, " "))
	case "media":
		if len(args) == 0 {
			return usage("media <url> [caption]")
		}
		return c.send(ctx, strings.Join(args[1:], " "), rooms.WithMedia(args[0]))
	case "history":
		return c.history()
	case "online":
		c.online()
	case "help":
		c.help()
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

func (c *Console) whoami() {
	user, ok := c.client.Identity.CurrentUser()
	if !ok {
		fmt.Fprintln(c.out, "not signed in")
		return
	}
	kind := "registered"
	if user.IsAnonymous {
		kind = "anonymous"
	}
	fmt.Fprintf(c.out, "%s (%s, %s)\n", user.Username, user.ID, kind)
	if room, ok := c.client.Rooms.ActiveRoom(); ok {
		fmt.Fprintf(c.out, "in room %s\n", room.Name)
	}
}

func (c *Console) listRooms(ctx context.Context) error {
	list, err := c.client.Rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range list {
		lock := ""
		if room.IsPrivate() {
			lock = " [private]"
		}
		fmt.Fprintf(c.out, "%-24s %-24s %3d users%s\n", room.ID, room.Name, room.UsersCount, lock)
	}
	return nil
}

// createRoom handles "create <name> [access code]". Names with spaces may be quoted.
func (c *Console) createRoom(ctx context.Context, args []string) error {
	name, rest := splitQuoted(args)
	if name == "" {
		return usage(`create <name|"long name"> [access code]`)
	}
	kind := core.PublicRoom()
	if len(rest) > 0 {
		var err error
		if kind, err = core.PrivateRoom(rest[0]); err != nil {
			return err
		}
	}
	id, err := c.client.CreateRoom(ctx, name, kind)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created room %s\n", id)
	return nil
}

func (c *Console) joinRoom(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("join <room id> [access code]")
	}
	code := ""
	if len(args) == 2 {
		code = args[1]
	}
	room, messages, err := c.client.Enter(ctx, args[0], code)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "joined %s\n", room.Name)
	for _, m := range messages {
		c.printMessage(m)
	}
	return nil
}

func (c *Console) send(ctx context.Context, text string, opts ...rooms.MessageOption) error {
	msg, err := c.client.SendMessage(ctx, text, opts...)
	if err != nil {
		return err
	}
	c.printMessage(msg)
	return nil
}

func (c *Console) history() error {
	if _, ok := c.client.Rooms.ActiveRoom(); !ok {
		return core.ErrNoActiveRoom
	}
	for _, m := range c.client.Rooms.Messages() {
		c.printMessage(m)
	}
	return nil
}

func (c *Console) online() {
	p := c.hub.Presence()
	fmt.Fprintf(c.out, "%d online, %d registered\n", p.TotalOnline, p.RegisteredOnline)
	for _, u := range p.Users {
		fmt.Fprintf(c.out, "  %s\n", u.Username)
	}
}

func (c *Console) printMessage(m core.Message) {
	text := m.Content
	if m.IsMedia {
		text = strings.TrimSpace(text + " <" + m.MediaURL + ">")
	}
	fmt.Fprintf(c.out, "[%s] %s: %s\n", m.Timestamp.Format(time.TimeOnly), m.SenderName, text)
}

func (c *Console) help() {
	fmt.Fprint(c.out, `commands:
  login <email> <password>          sign in
  signup <email> <username> <pass>  register and sign in
  anon [name]                       join anonymously
  logout                            sign out
  whoami                            show the current user
  rooms                             list rooms
  create <name> [access code]       create a room, private with a code
  join <room id> [access code]      enter a room
  leave                             leave the active room
  say <text>                        send a message
  media <url> [caption]             send a media message
  history                           show the active room's messages
  online                            show who is online
  quit                              exit
`)
}

// splitQuoted takes a leading argument that may span several fields in double quotes.
func splitQuoted(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	if !strings.HasPrefix(args[0], `"`) {
		return args[0], args[1:]
	}
	for i, a := range args {
		if (i > 0 || len(a) > 1) && strings.HasSuffix(a, `"`) {
			joined := strings.Join(args[:i+1], " ")
			return strings.Trim(joined, `"`), args[i+1:]
		}
	}
	return strings.Trim(strings.Join(args, " "), `"`), nil
}
