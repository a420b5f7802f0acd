package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/atinyakov/phototrack-admin/internal/client/api"
	"github.com/atinyakov/phototrack-admin/internal/config"
	"github.com/atinyakov/phototrack-admin/internal/geocode"
	"github.com/atinyakov/phototrack-admin/internal/middleware"
	"github.com/atinyakov/phototrack-admin/internal/models"
	"github.com/atinyakov/phototrack-admin/internal/service"
)

// stdio abstracts the terminal so commands can be driven from tests.
type stdio struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads a line without echo when the input is a terminal.
	readSecret func() (string, error)
}

func newStdio() *stdio {
	s := &stdio{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	s.readSecret = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return s.readLine()
		}
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(s.out)
		return string(b), err
	}
	return s
}

func (s *stdio) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (s *stdio) confirm(question string) (bool, error) {
	fmt.Fprintf(s.out, "%s [y/N]: ", question)
	answer, err := s.readLine()
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (s *stdio) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(b))
	return err
}

// globals are the persistent flags shared by every command.
type globals struct {
	configFile  string
	profile     string
	apiServer   string
	caFile      string
	certFile    string
	keyFile     string
	timeout     time.Duration
	geocoderURL string
	geocoderKey string
	yes         bool
}

// app is built once flags are parsed.
type app struct {
	users    *service.UserService
	sites    *service.SiteService
	photos   *service.PhotoService
	geocoder *geocode.Geocoder
}

// options resolves the settings the way the admin server does: defaults,
// then the config file, then the environment, then the flags given on the
// command line. API origins left empty come from the profile.
func (g *globals) options(cmd *cobra.Command) (*config.Options, error) {
	opts := &config.Options{
		Profile:     config.ProfileTest,
		Timeout:     config.Duration{Duration: 10 * time.Second},
		GeocoderURL: config.DefaultGeocoderURL,
	}

	if path := cmp.Or(g.configFile, os.Getenv("CONFIG")); path != "" {
		if err := config.ReadFile(path, opts); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(opts); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	for name, v := range map[string]struct {
		dst *string
		val string
	}{
		"profile":      {&opts.Profile, g.profile},
		"api":          {&opts.APIServer, g.apiServer},
		"ca":           {&opts.CAFile, g.caFile},
		"cert":         {&opts.CertFile, g.certFile},
		"key":          {&opts.KeyFile, g.keyFile},
		"geocoder":     {&opts.GeocoderURL, g.geocoderURL},
		"geocoder-key": {&opts.GeocoderKey, g.geocoderKey},
	} {
		if flags.Changed(name) {
			*v.dst = v.val
		}
	}
	if flags.Changed("timeout") {
		opts.Timeout.Duration = g.timeout
	}

	if err := opts.ApplyProfile(); err != nil {
		return nil, err
	}
	return opts, nil
}

// transports builds one HTTP client for the API, carrying its CA and
// client certificate, and a plain one for the public geocoder.
func transports(opts *config.Options) (apiHTTP, geoHTTP *http.Client, err error) {
	apiHTTP, err = api.NewHTTPClient(api.TransportOptions{
		CAFile:   opts.CAFile,
		CertFile: opts.CertFile,
		KeyFile:  opts.KeyFile,
		Timeout:  opts.Timeout.Duration,
	})
	if err != nil {
		return nil, nil, err
	}
	geoHTTP, err = api.NewHTTPClient(api.TransportOptions{Timeout: opts.Timeout.Duration})
	if err != nil {
		return nil, nil, err
	}
	return apiHTTP, geoHTTP, nil
}

func newApp(opts *config.Options) (*app, error) {
	apiHTTP, geoHTTP, err := transports(opts)
	if err != nil {
		return nil, err
	}

	client := api.New(apiHTTP, opts.APIServer)
	return &app{
		users:    service.NewUserService(client.Users),
		sites:    service.NewSiteService(client.Sites),
		photos:   service.NewPhotoService(client.Photos, client.SitePhotos),
		geocoder: geocode.New(geoHTTP, opts.GeocoderURL, opts.GeocoderKey),
	}, nil
}

func newRootCmd(std *stdio) *cobra.Command {
	g := &globals{}
	var a *app

	root := &cobra.Command{
		Use:           "phototrack",
		Short:         "Manage PhotoTrack users, sites and photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			opts, err := g.options(cmd)
			if err != nil {
				return err
			}
			a, err = newApp(opts)
			return err
		},
	}
	root.SetOut(std.out)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "path to config file (.json or .toml)")
	pf.StringVar(&g.profile, "profile", config.ProfileTest, "deployment profile: test | production")
	pf.StringVar(&g.apiServer, "api", "", "PhotoTrack API base URL (default from profile or API_SERVER)")
	pf.StringVar(&g.caFile, "ca", "", "path to CA bundle of the API")
	pf.StringVar(&g.certFile, "cert", "", "path to client cert for the API")
	pf.StringVar(&g.keyFile, "key", "", "path to client key for the API")
	pf.DurationVar(&g.timeout, "timeout", 10*time.Second, "request timeout (default API_TIMEOUT)")
	pf.StringVar(&g.geocoderURL, "geocoder", config.DefaultGeocoderURL, "geocoding endpoint")
	pf.StringVar(&g.geocoderKey, "geocoder-key", "", "geocoding API key (default GEOCODER_KEY)")
	pf.BoolVarP(&g.yes, "yes", "y", false, "do not ask for confirmation")

	appFn := func() *app { return a }
	root.AddCommand(
		newUsersCmd(std, g, appFn),
		newSitesCmd(std, g, appFn),
		newPhotosCmd(std, g, appFn),
		newGeocodeCmd(std, appFn),
		&cobra.Command{
			Use:   "version",
			Short: "Show build version and date",
			// Skip building the API client.
			PersistentPreRun: func(*cobra.Command, []string) {},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(std.out, "PhotoTrack client\nVersion: %s\nBuild Date: %s\n",
					cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
			},
		},
	)
	return root
}

// position reads the --lat and --lng flags of cmd. Both are needed to set
// a position; neither leaves it unknown.
func position(cmd *cobra.Command, lat, lng float64) (*float64, *float64, error) {
	latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
	switch {
	case latSet && lngSet:
		return models.Coord(lat), models.Coord(lng), nil
	case latSet || lngSet:
		return nil, nil, fmt.Errorf("--lat and --lng must be given together")
	}
	return nil, nil, nil
}

// commandContext tags API calls of one command with a fresh request id.
func commandContext(cmd *cobra.Command) context.Context {
	return middleware.WithRequestID(cmd.Context(), uuid.NewString())
}

// confirmDelete asks before a destructive call unless --yes was given.
func confirmDelete(std *stdio, g *globals, what string) (bool, error) {
	if g.yes {
		return true, nil
	}
	ok, err := std.confirm(fmt.Sprintf("Are you sure you want to delete %s", what))
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(std.out, "Aborted")
	}
	return ok, nil
}

func newUsersCmd(std *stdio, g *globals, a func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage user accounts"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a().users.List(commandContext(cmd))
			if err != nil {
				return err
			}
			return std.printJSON(users)
		},
	}

	get := &cobra.Command{
		Use:   "get UUID",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a().users.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return std.printJSON(user)
		},
	}

	var user models.User
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user; the password is prompted for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.UserName == "" {
				return fmt.Errorf("--username is required")
			}
			fmt.Fprint(std.out, "Password: ")
			password, err := std.readSecret()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			user.Password = password

			created, err := a().users.Create(commandContext(cmd), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(std.out, "User created: %s\n", created.Uuid)
			return nil
		},
	}
	add.Flags().StringVar(&user.UserName, "username", "", "login name")
	add.Flags().StringVar(&user.FullName, "fullname", "", "display name")
	add.Flags().StringVar(&user.Email, "email", "", "contact address")
	add.Flags().StringVar(&user.Organization, "org", "", "organization")
	add.Flags().BoolVar(&user.IsAdmin, "admin", false, "grant administrative rights")
	add.Flags().BoolVar(&user.IsSupervisor, "supervisor", false, "grant supervision rights")

	del := &cobra.Command{
		Use:   "delete UUID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirmDelete(std, g, "user "+args[0])
			if err != nil || !ok {
				return err
			}
			if err := a().users.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(std.out, "User deleted")
			return nil
		},
	}

	cmd.AddCommand(list, get, add, del)
	return cmd
}

func newSitesCmd(std *stdio, g *globals, a func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "sites", Short: "Manage sites"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := a().sites.List(commandContext(cmd))
			if err != nil {
				return err
			}
			return std.printJSON(sites)
		},
	}

	get := &cobra.Command{
		Use:   "get UUID",
		Short: "Show one site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := a().sites.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return std.printJSON(site)
		},
	}

	var (
		site     models.Site
		status   string
		locate   bool
		lat, lng float64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			var err error
			if site.Status, err = models.ParseStatus(status); err != nil {
				return err
			}
			if site.Latitude, site.Longitude, err = position(cmd, lat, lng); err != nil {
				return err
			}
			if locate {
				resp, err := a().geocoder.GeocodeAddress(ctx, site.Address)
				if err != nil {
					return err
				}
				if !resp.OK() {
					return fmt.Errorf("address not found: %s", resp.Status)
				}
				loc := resp.First().Location
				site.Latitude, site.Longitude = models.Coord(loc.Lat()), models.Coord(loc.Lon())
			}
			created, err := a().sites.Create(ctx, site)
			if err != nil {
				return err
			}
			fmt.Fprintf(std.out, "Site created: %s\n", created.Uuid)
			return nil
		},
	}
	add.Flags().StringVar(&site.Name, "name", "", "site name")
	add.Flags().StringVar(&site.PitNumber, "pit", "", "pit number")
	add.Flags().StringVar(&site.Address, "address", "", "postal address")
	add.Flags().Float64Var(&lat, "lat", 0, "latitude")
	add.Flags().Float64Var(&lng, "lng", 0, "longitude")
	add.Flags().StringVar(&status, "status", "", "integer status code")
	add.Flags().BoolVar(&locate, "geocode", false, "set the position from the address")

	del := &cobra.Command{
		Use:   "delete UUID",
		Short: "Delete a site and its photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirmDelete(std, g, "site "+args[0])
			if err != nil || !ok {
				return err
			}
			if err := a().sites.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(std.out, "Site deleted")
			return nil
		},
	}

	cmd.AddCommand(list, get, add, del)
	return cmd
}

func newPhotosCmd(std *stdio, g *globals, a func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "photos", Short: "Manage the photos of a site"}

	var siteID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the photos of a site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			photos, err := a().photos.ListBySite(commandContext(cmd), siteID)
			if err != nil {
				return err
			}
			return std.printJSON(photos)
		},
	}
	list.Flags().StringVar(&siteID, "site", "", "site identifier")
	_ = list.MarkFlagRequired("site")

	get := &cobra.Command{
		Use:   "get UUID",
		Short: "Show one photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			photo, err := a().photos.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return std.printJSON(photo)
		},
	}

	var (
		upload   service.Upload
		lat, lng float64
	)
	add := &cobra.Command{
		Use:   "upload FILE",
		Short: "Attach an image file to a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			upload.Data = data
			if upload.Latitude, upload.Longitude, err = position(cmd, lat, lng); err != nil {
				return err
			}
			photo, err := a().photos.Upload(commandContext(cmd), upload)
			if err != nil {
				return err
			}
			fmt.Fprintf(std.out, "Photo uploaded: %s (%s)\n", photo.Uuid, photo.ImageMime)
			return nil
		},
	}
	add.Flags().StringVar(&upload.SiteUuid, "site", "", "site identifier")
	add.Flags().StringVar(&upload.Tag, "tag", "", "short caption")
	add.Flags().Float64Var(&lat, "lat", 0, "latitude")
	add.Flags().Float64Var(&lng, "lng", 0, "longitude")
	add.Flags().StringVar(&upload.Mime, "mime", "", "image content type (sniffed when empty)")
	_ = add.MarkFlagRequired("site")

	del := &cobra.Command{
		Use:   "delete UUID",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirmDelete(std, g, "photo "+args[0])
			if err != nil || !ok {
				return err
			}
			if err := a().photos.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(std.out, "Photo deleted")
			return nil
		},
	}

	cmd.AddCommand(list, get, add, del)
	return cmd
}

func newGeocodeCmd(std *stdio, a func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "geocode", Short: "Resolve addresses and positions"}

	address := &cobra.Command{
		Use:   "address ADDRESS",
		Short: "Find the position of an address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a().geocoder.GeocodeAddress(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printGeocode(std, resp)
		},
	}

	latlng := &cobra.Command{
		Use:   "latlng LAT LNG",
		Short: "Find the address of a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q", args[0])
			}
			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q", args[1])
			}
			resp, err := a().geocoder.GeocodeLatLng(cmd.Context(), lat, lng)
			if err != nil {
				return err
			}
			return printGeocode(std, resp)
		},
	}

	cmd.AddCommand(address, latlng)
	return cmd
}

func printGeocode(std *stdio, resp *geocode.Response) error {
	if !resp.OK() {
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return fmt.Errorf("geocode: %s", msg)
	}
	for _, r := range resp.Results {
		fmt.Fprintf(std.out, "%s\t%g,%g\n", r.FormattedAddress, r.Location.Lat(), r.Location.Lon())
	}
	return nil
}
