package reindex

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/appbaseio/migrator/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMigrate(t *testing.T) {
	Convey("Migrate", t, func() {
		ctx := context.Background()
		c := newFakeCluster()
		m := New(c, WithPollInterval(time.Millisecond), WithRetryWait(time.Millisecond))

		Convey("an alias that does not exist gets a fresh index", func() {
			res, err := m.Migrate(ctx, Plan{Alias: "users"})
			So(err, ShouldBeNil)
			So(res.Action, ShouldEqual, ActionCreated)
			So(res.Index, ShouldEqual, "users_reindexed_1")
			So(Mappings(c.indices["users_reindexed_1"].mappings).HasProperty("migrationVersion"), ShouldBeTrue)
			So(c.indices["users_reindexed_1"].mappings["dynamic"], ShouldEqual, "strict")

			info, err := m.FetchInfo(ctx, "users")
			So(err, ShouldBeNil)
			So(info.IndexName, ShouldEqual, "users_reindexed_1")
			So(c.reindexes, ShouldBeEmpty)
		})

		Convey("a concrete index is converted", func() {
			c.addIndex("users", map[string]interface{}{"properties": map[string]interface{}{}}, 30)
			res, err := m.Migrate(ctx, Plan{Alias: "users", Mappings: migratedMappings(), BatchSize: 10, Script: "ctx._source.v = 2"})
			So(err, ShouldBeNil)
			So(res.Action, ShouldEqual, ActionConverted)
			So(res.Previous, ShouldEqual, "users")
			So(res.Index, ShouldEqual, "users_reindexed_1")
			So(c.reindexes[0], ShouldResemble, ReindexRequest{
				Source: "users", Dest: "users_reindexed_1", Size: 10, Script: "ctx._source.v = 2",
			})
			So(len(c.indices["users_reindexed_1"].docs), ShouldEqual, 30)
			So(c.aliasRequests[0][0], ShouldResemble, RemoveIndex("users"))
		})

		Convey("an alias is moved to the next index", func() {
			c.addIndex("users_reindexed_3", migratedMappings(), 4)
			c.bind("users_reindexed_3", "users")
			mappings := Mappings{
				"dynamic":    "strict",
				"properties": map[string]interface{}{"migrationVersion": map[string]interface{}{"type": "object"}},
			}
			res, err := m.Migrate(ctx, Plan{Alias: "users", Mappings: mappings, Versions: MigrationVersion{"n": "2"}})
			So(err, ShouldBeNil)
			So(res.Action, ShouldEqual, ActionReindexed)
			So(res.Previous, ShouldEqual, "users_reindexed_3")
			So(res.Index, ShouldEqual, "users_reindexed_4")
			So(c.aliasRequests[0], ShouldResemble, []AliasAction{
				RemoveAlias("users_reindexed_3", "users"),
				AddAlias("users_reindexed_4", "users"),
			})

			Convey("and the previous index is kept", func() {
				_, ok := c.indices["users_reindexed_3"]
				So(ok, ShouldBeTrue)
			})
		})

		Convey("an up to date alias is left alone", func() {
			c.addIndex("users_reindexed_1", migratedMappings(), 0)
			c.bind("users_reindexed_1", "users")
			res, err := m.Migrate(ctx, Plan{Alias: "users", Versions: MigrationVersion{"a": "1"}})
			So(err, ShouldBeNil)
			So(res.Action, ShouldEqual, ActionNone)
			So(c.called("CreateIndex"), ShouldEqual, 0)
		})

		Convey("a plan needs an alias", func() {
			_, err := m.Migrate(ctx, Plan{})
			So(err, ShouldNotBeNil)
		})

		Convey("an alias already being migrated is refused", func() {
			So(acquire("job-1", "users"), ShouldBeNil)
			defer release("job-1")
			So(IsInProgress("users"), ShouldBeTrue)

			_, err := m.Migrate(ctx, Plan{ID: "job-2", Alias: "users"})
			var busy *errors.MigrationInProgressError
			So(stderrors.As(err, &busy), ShouldBeTrue)
			So(busy.Owner, ShouldEqual, "job-1")
		})

		Convey("a plan that would leave the new index without migration versions is refused", func() {
			Convey("for a concrete index kept with its mappings", func() {
				c.addIndex("users", map[string]interface{}{"properties": map[string]interface{}{}}, 3)
				_, err := m.Migrate(ctx, Plan{Alias: "users"})
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "migrationVersion")
			})
			Convey("for an alias kept with its mappings", func() {
				c.addIndex("users_reindexed_1", map[string]interface{}{"properties": map[string]interface{}{}}, 3)
				c.bind("users_reindexed_1", "users")
				_, err := m.Migrate(ctx, Plan{Alias: "users", Versions: MigrationVersion{"n": "2"}})
				So(err, ShouldNotBeNil)

				Convey("on every call", func() {
					_, err := m.Migrate(ctx, Plan{Alias: "users", Versions: MigrationVersion{"n": "2"}})
					So(err, ShouldNotBeNil)
				})
			})
			Convey("for new mappings without the field", func() {
				_, err := m.Migrate(ctx, Plan{Alias: "users", Mappings: DefaultMappings()})
				So(err, ShouldNotBeNil)
			})

			So(c.called("CreateIndex"), ShouldEqual, 0)
			So(c.reindexes, ShouldBeEmpty)
			So(IsInProgress("users"), ShouldBeFalse)
		})

		Convey("a second migration of the same alias is refused while the first runs", func() {
			c.addIndex("users", migratedMappings(), 5)
			c.hold = make(chan struct{})
			first := make(chan error, 1)
			go func() {
				_, err := m.Migrate(ctx, Plan{Alias: "users", Versions: MigrationVersion{"n": "2"}})
				first <- err
			}()
			waitForReservation("users_reindexed_1")

			_, err := m.Migrate(ctx, Plan{Alias: "users", Versions: MigrationVersion{"n": "2"}})
			close(c.hold)
			var busy *errors.MigrationInProgressError
			So(stderrors.As(err, &busy), ShouldBeTrue)
			So(busy.Owner, ShouldEqual, "users")

			So(<-first, ShouldBeNil)
			So(c.reindexes, ShouldHaveLength, 1)
			So(IsInProgress("users"), ShouldBeFalse)
			So(IsInProgress("users_reindexed_1"), ShouldBeFalse)
		})

		Convey("the refused migration leaves the reservations of the running one", func() {
			c.addIndex("users", migratedMappings(), 5)
			c.hold = make(chan struct{})
			first := make(chan error, 1)
			go func() {
				_, err := m.Migrate(ctx, Plan{ID: "job-4", Alias: "users", Versions: MigrationVersion{"n": "2"}})
				first <- err
			}()
			waitForReservation("users_reindexed_1")

			_, err := m.Migrate(ctx, Plan{ID: "job-4", Alias: "users", Versions: MigrationVersion{"n": "2"}})
			held := IsInProgress("users") && IsInProgress("users_reindexed_1")
			close(c.hold)
			So(err, ShouldNotBeNil)
			So(held, ShouldBeTrue)
			So(<-first, ShouldBeNil)
		})

		Convey("names are released when the migration ends", func() {
			_, err := m.Migrate(ctx, Plan{ID: "job-3", Alias: "users"})
			So(err, ShouldBeNil)
			So(IsInProgress("users"), ShouldBeFalse)
			So(IsInProgress("users_reindexed_1"), ShouldBeFalse)
		})
	})
}

// waitForReservation blocks until name is part of a running migration.
func waitForReservation(name string) {
	deadline := time.Now().Add(5 * time.Second)
	for !IsInProgress(name) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	So(IsInProgress(name), ShouldBeTrue)
}

func TestReindexedName(t *testing.T) {
	Convey("ReindexedName", t, func() {
		Convey("first reindex", func() {
			name, err := ReindexedName("twitter")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "twitter_reindexed_1")
		})
		Convey("successive reindex", func() {
			name, err := ReindexedName("foo_reindexed_3")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "foo_reindexed_4")
		})
		Convey("underscores in the base name", func() {
			name, err := ReindexedName("my_big_index_reindexed_19")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "my_big_index_reindexed_20")
		})
		Convey("suffix not at the end", func() {
			name, err := ReindexedName("foo_reindexed_3_old")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "foo_reindexed_3_old_reindexed_1")
		})
		Convey("empty name", func() {
			_, err := ReindexedName("")
			So(err, ShouldNotBeNil)
		})
	})
}
