// Package container provides a name-keyed bean factory with aliases,
// singleton and prototype scopes, setter-level circular reference support,
// lifecycle hooks and service providers.
//
// # Overview
//
// Beans are described by definitions. A definition points at a Class, which
// holds the factory function and the named setters and hook methods the
// definition may use. Go has no runtime constructor or setter discovery, so
// classes are declared once with generic helpers and the container only ever
// calls the closures they capture.
//
// # Classes and definitions
//
//	userRepo := container.ClassOf("userRepository", NewMemoryUserRepository)
//
//	userSvc := container.NewClass("userService", func(args []any) (*UserService, error) {
//	    timeout, err := container.Arg[time.Duration](args, 0)
//	    return &UserService{Timeout: timeout}, err
//	})
//	container.Property(userSvc, "repo", func(s *UserService, r UserRepository) { s.Repo = r })
//	container.Method(userSvc, "Start", (*UserService).Start)
//
//	c := container.New(container.WithLogger(logger))
//	c.RegisterBeanDefinition("userRepository", container.Define(userRepo))
//	c.RegisterBeanDefinition("userService", container.Define(userSvc).
//	    WithArg("timeout", reflect.TypeFor[time.Duration](), "5s").
//	    WithProperty("repo", container.Ref("userRepository")).
//	    WithInit("Start"))
//
// # Resolving
//
//	// Untyped
//	raw, err := c.GetBean("userService")
//
//	// Generic (preferred: no type assertion required)
//	svc, err := container.GetBeanAs[*UserService](c, "userService")
//
//	// By type; fails unless exactly one bean matches
//	repo, err := container.GetBeanFor[UserRepository](c)
//
// # Aliases
//
//	c.RegisterAlias("userService", "users")
//	c.RegisterAlias("users", "accounts") // chains resolve transitively
//
// # Circular references
//
// Singletons that refer to each other through properties resolve: the raw
// instance of the first bean is exposed before its properties are set, and
// the second bean receives that same instance. Cycles through constructor
// arguments cannot be broken and fail with ErrCircularDependency, naming the
// full chain.
//
// # Lifecycle
//
//  1. constructor arguments resolved, factory called
//  2. raw instance exposed for circular lookups (singletons only)
//  3. properties populated, contextual overrides applied
//  4. SetBeanName, SetContainer
//  5. BeanPostProcessor.PostProcessBeforeInitialization
//  6. InitializingBean.AfterPropertiesSet, declared init method
//  7. BeanPostProcessor.PostProcessAfterInitialization
//  8. published (singletons only)
//
// DestroySingletons calls DisposableBean.Destroy and the declared destroy
// method on every published singleton.
//
// Lookups made from inside lifecycle callbacks must go through the
// BeanFactory handed to SetContainer, not the *Container itself.
//
// # Contextual overrides
//
//	c.When("photoController").Needs("storage").GiveRef("s3Storage")
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&RepositoryProvider{})
//	registry.Boot() // boots providers, then pre-instantiates singletons
//
// Deferred providers register their definitions the first time one of their
// Provides() names is looked up.
package container
