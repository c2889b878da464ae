package enroll

import (
	"strings"

	"github.com/dogmatiq/ferrite"
	"github.com/registrarkit/enroll/publish/kafka"
)

// FerriteRegistry is a registry of the environment variables used by this
// module.
//
// It can be used with the [ferrite] package.
var FerriteRegistry = ferrite.NewRegistry(
	"registrarkit.enroll",
	"Enroll",
	ferrite.WithDocumentationURL("https://github.com/registrarkit/enroll#readme"),
)

var (
	snapshotInterval = ferrite.
				Unsigned[uint64]("ENROLL_SNAPSHOT_INTERVAL", "the number of events between snapshots").
				Optional(ferrite.WithRegistry(FerriteRegistry))

	allowDuplicates = ferrite.
			Bool("ENROLL_ALLOW_DUPLICATES", "disable the courtesy duplicate-enrollment lookup").
			WithDefault(false).
			Required(ferrite.WithRegistry(FerriteRegistry))

	termWindowYears = ferrite.
			Signed[int]("ENROLL_TERM_WINDOW_YEARS", "the window of years around the current date within which a requested term must fall").
			Optional(ferrite.WithRegistry(FerriteRegistry))

	kafkaBrokers = ferrite.
			String("ENROLL_KAFKA_BROKERS", "a comma-separated list of Kafka broker addresses to publish events to").
			Optional(ferrite.WithRegistry(FerriteRegistry))

	kafkaTopic = ferrite.
			String("ENROLL_KAFKA_TOPIC", "the Kafka topic that enrollment events are published to").
			WithDefault("enrollment.events").
			Required(ferrite.WithRegistry(FerriteRegistry))
)

// FromEnvironment returns the options specified via environment variables.
//
// Explicit options passed to [New] after these take precedence. The caller
// is expected to run [ferrite.Init] during startup.
func FromEnvironment() []Option {
	var options []Option

	if v, ok := snapshotInterval.Value(); ok {
		options = append(options, WithSnapshotInterval(v))
	}

	if allowDuplicates.Value() {
		options = append(options, WithAllowDuplicates(true))
	}

	if v, ok := termWindowYears.Value(); ok {
		options = append(options, WithTermWindowYears(v))
	}

	if brokers, ok := kafkaBrokers.Value(); ok {
		options = append(
			options,
			WithPublisher(
				kafka.NewPublisher(
					strings.Split(brokers, ","),
					kafkaTopic.Value(),
				),
			),
		)
	}

	return options
}
