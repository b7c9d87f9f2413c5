package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"stratolift/internal/api"
	"stratolift/internal/guard"
	"stratolift/internal/jobs"
	"stratolift/internal/log"
	"stratolift/internal/models"
	"stratolift/internal/security"
	"stratolift/internal/tasks"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":     cmdLogin,
	"logout":    cmdLogout,
	"whoami":    cmdWhoami,
	"profile":   cmdProfile,
	"register":  cmdRegister,
	"tasks":     cmdTasks,
	"task":      cmdTask,
	"request":   cmdRequest,
	"status":    cmdStatus,
	"clock-in":  cmdClockIn,
	"clock-out": cmdClockOut,
	"upload":    cmdUpload,
	"watch":     cmdWatch,
}

var errSignedOut = errors.New("not signed in, run: stratolift login")

// require applies the same rules as the app's route guard.
func (a *app) require(ctx context.Context, role models.UserRole) error {
	d := guard.Check(ctx, a.session, role)
	switch {
	case d.Action == guard.Allow:
		return nil
	case d.Route == guard.RouteAuthentication:
		return errSignedOut
	default:
		return fmt.Errorf("this command is for %s accounts", role)
	}
}

func password(value string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv("STRATOLIFT_PASSWORD"); env != "" {
		return env
	}
	return ""
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	pw := fs.String("password", "", "password (or STRATOLIFT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := password(*pw)
	if err := api.ValidateLogin(*email, secret); err != nil {
		return err
	}

	role, err := a.session.Login(ctx, strings.TrimSpace(*email), secret)
	if err != nil {
		return err
	}
	user := a.session.User()
	fmt.Fprintf(a.out, "Signed in as %s (%s). Home: %s\n", user.FullName(), role, guard.LandingRoute(role))
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.require(ctx, ""); err != nil {
		return err
	}
	s := a.session.State()
	expires := "unknown"
	if claims, err := security.InspectToken(s.Token); err == nil {
		expires = claims.ExpiresAt.Local().Format(time.RFC3339)
	}

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", s.User.FullName())
	fmt.Fprintf(w, "Email\t%s\n", s.User.Email)
	fmt.Fprintf(w, "Role\t%s\n", s.User.Role)
	fmt.Fprintf(w, "Token expires\t%s\n", expires)
	return w.Flush()
}

type profileEdits struct {
	FirstName, LastName, Email, Phone, Address string
}

// apply merges non-empty edits into u. Names and email must stay set.
func (e profileEdits) apply(u models.User) (models.User, error) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&u.FirstName, e.FirstName)
	set(&u.LastName, e.LastName)
	set(&u.Email, e.Email)
	set(&u.Phone, e.Phone)
	set(&u.Address, e.Address)
	if u.FirstName == "" || u.LastName == "" || u.Email == "" {
		return u, api.ValidationError("Name and email are required fields")
	}
	return u, nil
}

// cmdProfile edits the profile held by the current session. Edits are not
// sent to the API and are not persisted.
func cmdProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	var edits profileEdits
	fs.StringVar(&edits.FirstName, "first-name", "", "first name")
	fs.StringVar(&edits.LastName, "last-name", "", "last name")
	fs.StringVar(&edits.Email, "email", "", "email")
	fs.StringVar(&edits.Phone, "phone", "", "phone number")
	fs.StringVar(&edits.Address, "address", "", "address")
	photo := fs.String("photo", "", "profile picture to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(ctx, ""); err != nil {
		return err
	}

	updated, err := edits.apply(*a.session.User())
	if err != nil {
		return err
	}
	if *photo != "" {
		att, err := uploadFile(ctx, a, *photo)
		if err != nil {
			return err
		}
		updated.Image = &att.URL
	}
	if err := a.session.SetUser(&updated); err != nil {
		return err
	}

	u := a.session.User()
	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", u.FullName())
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
	fmt.Fprintf(w, "Address\t%s\n", u.Address)
	if u.Image != nil {
		fmt.Fprintf(w, "Picture\t%s\n", *u.Image)
	}
	return w.Flush()
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req api.RegisterRequest
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.Address, "address", "", "address")
	fs.StringVar(&req.Password, "password", "", "password (or STRATOLIFT_PASSWORD)")
	fs.StringVar(&req.ConfirmPassword, "confirm-password", "", "repeat the password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Password = password(req.Password)
	if req.ConfirmPassword == "" {
		req.ConfirmPassword = req.Password
	}

	if err := a.client.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registration successful. You can now sign in.")
	return nil
}

func cmdTasks(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	bucket := fs.String("bucket", "all", "all|pending|in-progress|completed")
	priority := fs.String("priority", "all", "all|low|medium|high|urgent")
	query := fs.String("q", "", "search title, description and task id")
	sort := fs.String("sort", "latest", "latest|oldest|priority")
	history := fs.String("history", "", "filter by type or status instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(ctx, ""); err != nil {
		return err
	}

	all, err := a.client.ListTasks(ctx)
	if err != nil {
		return err
	}

	var view []models.Task
	if *history != "" {
		view = tasks.HistoryFilter(all, *history)
	} else {
		view = tasks.Apply(all, tasks.Filter{
			Bucket:   tasks.Bucket(*bucket),
			Priority: models.TaskPriority(*priority),
			Query:    *query,
			Sort:     tasks.SortOrder(*sort),
		})
	}

	c := tasks.Counts(all)
	fmt.Fprintf(a.out, "%d pending, %d in progress, %d completed, %d total\n\n", c.Pending, c.InProgress, c.Completed, c.Total)

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tTYPE\tPRIORITY\tSTATUS\tTITLE\tCREATED")
	for _, t := range view {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.TaskID, t.Type, t.Priority, t.Status, t.Title, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdTask(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stratolift task <id>")
	}
	if err := a.require(ctx, ""); err != nil {
		return err
	}

	t, err := a.client.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Task\t%s\n", t.TaskID)
	fmt.Fprintf(w, "Title\t%s\n", t.Title)
	fmt.Fprintf(w, "Type\t%s\n", t.Type)
	fmt.Fprintf(w, "Status\t%s\n", t.Status)
	fmt.Fprintf(w, "Priority\t%s\n", t.Priority)
	fmt.Fprintf(w, "Location\t%s\n", t.Location)
	if t.ElevatorID != "" {
		fmt.Fprintf(w, "Elevator\t%s\n", t.ElevatorID)
	}
	if t.AssignedTo != nil {
		fmt.Fprintf(w, "Technician\t%s\n", t.AssignedTo.Name)
	}
	fmt.Fprintf(w, "Description\t%s\n", t.Description)
	for _, att := range t.Attachments {
		fmt.Fprintf(w, "Attachment\t%s %s\n", att.Name, att.URL)
	}
	for _, u := range t.Updates {
		fmt.Fprintf(w, "Update\t%s  %s\n", u.CreatedAt.Local().Format("2006-01-02 15:04"), u.Message)
	}
	return w.Flush()
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func cmdRequest(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	var req api.CreateTaskRequest
	kind := fs.String("type", "service", "maintenance|service|sos")
	priority := fs.String("priority", "", "low|medium|high|urgent (sos defaults to urgent)")
	fs.StringVar(&req.Title, "title", "", "short title")
	fs.StringVar(&req.Description, "description", "", "what is wrong")
	fs.StringVar(&req.Location, "location", "", "building and floor")
	fs.StringVar(&req.ElevatorID, "elevator", "", "elevator id")
	var files stringList
	fs.Var(&files, "attach", "photo or video to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(ctx, ""); err != nil {
		return err
	}
	req.Type = models.TaskType(*kind)
	req.Priority = models.TaskPriority(*priority)

	for _, path := range files {
		att, err := uploadFile(ctx, a, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		req.Attachments = append(req.Attachments, att)
	}

	t, err := a.client.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Submitted %s (%s, %s priority)\n", t.TaskID, t.Type, t.Priority)
	return nil
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	note := fs.String("note", "", "update message")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: stratolift status [-note text] <id> <status>")
	}
	if err := a.require(ctx, models.UserRoleTechnician); err != nil {
		return err
	}

	patch := api.StatusChange(models.TaskStatus(fs.Arg(1)))
	if *note != "" {
		patch.UpdateMessage = *note
	}
	t, err := a.client.UpdateTask(ctx, fs.Arg(0), patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", t.TaskID, t.Status)
	return nil
}

func cmdClockIn(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("clock-in", flag.ContinueOnError)
	var req api.ClockInRequest
	fs.Float64Var(&req.Location.Latitude, "lat", 0, "latitude")
	fs.Float64Var(&req.Location.Longitude, "lng", 0, "longitude")
	fs.StringVar(&req.Location.Address, "address", "", "site address")
	fs.StringVar(&req.Notes, "notes", "", "notes")
	photo := fs.String("photo", "", "site photo to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(ctx, models.UserRoleTechnician); err != nil {
		return err
	}

	if *photo != "" {
		att, err := uploadFile(ctx, a, *photo)
		if err != nil {
			return err
		}
		req.Image = att.URL
	}

	entry, err := a.client.ClockIn(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Clocked in at %s\n", entry.ClockInTime.Local().Format(time.Kitchen))
	return nil
}

func cmdClockOut(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("clock-out", flag.ContinueOnError)
	notes := fs.String("notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.require(ctx, models.UserRoleTechnician); err != nil {
		return err
	}

	active, err := a.client.ActiveClockIn(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return api.ValidationError("No active clock-in found.")
	}

	entry, err := a.client.ClockOut(ctx, api.ClockOutRequest{ID: active.ID, Notes: *notes})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Clocked out after %s\n", entry.Duration(time.Now()).Round(time.Minute))
	return nil
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stratolift upload <file>")
	}
	att, err := uploadFile(ctx, a, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\n", att.Type, att.URL)
	return nil
}

func uploadFile(ctx context.Context, a *app, path string) (models.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Attachment{}, err
	}
	defer f.Close()

	res, mime, err := a.client.Upload(ctx, path, f)
	if err != nil {
		return models.Attachment{}, err
	}
	return res.Attachment(filepath.Base(path), mime), nil
}

func cmdWatch(ctx context.Context, a *app, _ []string) error {
	if err := a.require(ctx, ""); err != nil {
		return err
	}

	watcher := jobs.NewExpiryWatcher(a.cfg.Watch.Schedule, a.session, log.Component(a.log, "watch"))
	expired := make(chan struct{}, 1)
	watcher.OnExpire(func() {
		select {
		case expired <- struct{}{}:
		default:
		}
	})
	if err := watcher.Start(); err != nil {
		return err
	}
	defer func() { <-watcher.Stop().Done() }()

	fmt.Fprintf(a.out, "Watching session for %s\n", a.session.User().Email)
	select {
	case <-ctx.Done():
		return nil
	case <-expired:
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
		return nil
	}
}
