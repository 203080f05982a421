// Package performs turns plain methods on domain types into background
// jobs. Declaring a method generates a job type that runs the method on a
// record resolved from its global id, a Later operation that enqueues it
// for one record and a LaterBulk operation for many.
//
// Execution belongs to the host job engine ([Host]), normally an
// *engine.Engine; records cross the job boundary as globalid identifiers.
//
// # Declaring
//
//	cat := performs.New(eng, performs.WithApp("blog"))
//
//	articles, _ := performs.Define(cat, "Article",
//	    func(a *Article) string { return a.ID },
//	    repo.FindArticle,
//	    performs.WithAll(repo.AllArticles),
//	)
//	_ = articles.Configure(performs.Queue("articles"))
//
//	publish, _ := performs.Declare(articles, "publish!", (*Article).publish,
//	    performs.Bag{"wait": 5 * time.Minute},
//	    performs.DiscardOn(ErrGone),
//	)
//
//	publish.Later(ctx, article, performs.Kw("reason", "scheduled"))
//
// # Naming
//
// One trailing "!" or "?" is stripped for the job type and kept on the
// generated names: "publish!" yields the job type "Article.PublishJob",
// the operation "publish_later!" and the bulk operation
// "publish_later_bulk!". [IdentityNaming] disables stripping.
//
// # Configuration
//
// Options apply in order to the job type. A [Bag] goes through the fixed
// option table and rejects unknown keys with [ErrUnsupportedOption].
// Settings a method job type does not set are inherited from the model's
// base job type, then from the engine defaults. Overrides loaded from a
// configuration file apply last.
//
// # Scheduling
//
// Wait and wait-until are evaluated for each record on every enqueue.
// Zero results are ignored; when both are set, wait-until wins.
package performs
