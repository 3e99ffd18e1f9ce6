// pipeline-tool runs the Bigtable round trip and inspects or feeds the
// device data pipeline from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v2"

	"github.com/kodariks/iot-webapp/go/now"
	"github.com/kodariks/iot-webapp/go/pubsub/sub"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/go/sklog"
	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/go/sklog/stdlogging"
	"github.com/kodariks/iot-webapp/go/urfavecli"
	"github.com/kodariks/iot-webapp/go/util"
	"github.com/kodariks/iot-webapp/pipeline/go/config"
	"github.com/kodariks/iot-webapp/pipeline/go/devicedata"
	"github.com/kodariks/iot-webapp/pipeline/go/devicestore"
	"github.com/kodariks/iot-webapp/pipeline/go/handler"
	"github.com/kodariks/iot-webapp/pipeline/go/harness"
)

const (
	configFlagName      = "config"
	tableFlagName       = "table"
	deviceFlagName      = "device"
	temperatureFlagName = "temperature"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String(configFlagName); path != "" {
		return config.Load(path, os.LookupEnv)
	}
	return config.FromEnv(os.LookupEnv)
}

func invoke(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
	return handler.BigtableInput(ctx, cfg, tableName, log)
}

func helloAction(c *cli.Context) error {
	urfavecli.LogFlags(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	tableName := c.String(tableFlagName)
	if tableName == "" {
		tableName = harness.TableName(nil)
	}
	return handler.BigtableInput(c.Context, cfg, tableName, sklogimpl.GetLogger())
}

func systemTestAction(c *cli.Context) error {
	urfavecli.LogFlags(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	inv, err := harness.Run(c.Context, cfg, harness.TableName(nil), invoke)
	if inv != nil {
		fmt.Println(inv.Output)
	}
	if err != nil {
		return err
	}
	sklog.Infof("System test passed against %s/%s using table %s", inv.ProjectID, inv.ClusterID, inv.TableName)
	return nil
}

func scanAction(c *cli.Context) error {
	urfavecli.LogFlags(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := cfg.ClientOptions(c.Context)
	if err != nil {
		return err
	}
	tableName := c.String(tableFlagName)
	if tableName == "" {
		tableName = cfg.Table
	}
	store, err := devicestore.New(c.Context, cfg.ProjectID, cfg.ClusterID, tableName, opts...)
	if err != nil {
		return err
	}
	defer util.Close(store)
	var prefix string
	if device := c.String(deviceFlagName); device != "" {
		prefix = devicedata.DevicePrefix(device)
	}
	count := 0
	if err := store.Scan(c.Context, prefix, func(rowKey string, r *devicedata.Reading) bool {
		fmt.Printf("%s: temperature=%s @%s\n", rowKey, devicedata.FormatTemperature(r.Temperature), r.Timestamp.Format(time.RFC3339Nano))
		count++
		return true
	}); err != nil {
		return err
	}
	sklog.Infof("Found %d readings in %s", count, tableName)
	return nil
}

func publishAction(c *cli.Context) error {
	urfavecli.LogFlags(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := cfg.ClientOptions(c.Context)
	if err != nil {
		return err
	}
	device := c.String(deviceFlagName)
	if device == "" {
		device = "device-" + uuid.New().String()
	}
	r := &devicedata.Reading{
		DeviceID:    device,
		Timestamp:   now.Now(c.Context).UTC(),
		Temperature: c.Float64(temperatureFlagName),
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b, err := r.Encode()
	if err != nil {
		return err
	}

	client, err := pubsub.NewClient(c.Context, cfg.ProjectID, opts...)
	if err != nil {
		return skerr.Wrap(err)
	}
	defer util.Close(client)
	topic, err := sub.EnsureTopic(c.Context, client, cfg.Topic)
	if err != nil {
		return err
	}
	defer topic.Stop()
	id, err := topic.Publish(c.Context, &pubsub.Message{Data: b}).Get(c.Context)
	if err != nil {
		return skerr.Wrapf(err, "publishing to %s", cfg.Topic)
	}
	sklog.Infof("Published reading for %s as message %s; it will be stored under %s", device, id, r.RowKey())
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pipeline-tool",
		Usage: "Command line tool for the device data pipeline.",
		Before: func(c *cli.Context) error {
			// Log to stdout.
			sklogimpl.SetLogger(stdlogging.New(os.Stdout))
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlagName,
				Usage: "Optional json5 config file. Environment variables override its values.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "hello",
				Usage:       "Runs the Bigtable round trip.",
				Description: "Creates a table, writes a reading, reads it back, scans the table and deletes it.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  tableFlagName,
						Usage: "Name of the table to create and delete. Defaults to a random name.",
					},
				},
				Action: helloAction,
			},
			{
				Name:        "systemtest",
				Usage:       "Runs the round trip and checks its output.",
				Description: "Uses a random table name and exits non-zero if the round trip fails or its output is incomplete.",
				Action:      systemTestAction,
			},
			{
				Name:  "scan",
				Usage: "Prints stored readings.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  tableFlagName,
						Usage: "Table to scan. Defaults to the configured table.",
					},
					&cli.StringFlag{
						Name:  deviceFlagName,
						Usage: "Only print readings from this device.",
					},
				},
				Action: scanAction,
			},
			{
				Name:  "publish",
				Usage: "Publishes a reading to the configured topic.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  deviceFlagName,
						Usage: "Device ID. Defaults to a random one.",
					},
					&cli.Float64Flag{
						Name:  temperatureFlagName,
						Value: handler.DemoTemperature,
						Usage: "Temperature to report.",
					},
				},
				Action: publishAction,
			},
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	sklog.Flush()
	if err != nil {
		fmt.Printf("\nError: %s\n", err.Error())
		os.Exit(2)
	}
}
