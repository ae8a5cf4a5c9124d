package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
)

type TaskAPI struct {
	httpSrv    *http.Server
	auth       *service.AuthService
	tasks      *service.TaskService
	categories *service.CategoryService
	cfg        *Config
}

func NewTaskAPI(users service.UserRepository, tasks service.TaskRepository, categories service.CategoryRepository, cfg *Config) *TaskAPI {
	if users == nil || tasks == nil || categories == nil {
		return nil
	}
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg = fillDefaults(cfg)

	query := service.QueryConfig{PageSize: cfg.PageSize, MaxPageSize: cfg.MaxPageSize}

	api := TaskAPI{
		httpSrv: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
		},
		auth:       service.NewAuthService(users),
		tasks:      service.NewTaskService(tasks, categories, query),
		categories: service.NewCategoryService(categories, query),
		cfg:        cfg,
	}

	api.configRoutes()

	return &api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	if api.httpSrv.Addr == "" {
		api.httpSrv.Addr = ":8080"
	}
	return api.httpSrv.ListenAndServe()
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return nil
	}
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) configRoutes() {
	router := gin.Default()
	router.Use(GzipRequestDecompress(), GzipResponseCompress())

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "использован некорректный HTTP-метод"})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/register", api.register)
		apiGroup.POST("/token", api.token)
		apiGroup.POST("/token/refresh", api.tokenRefresh)

		tasks := apiGroup.Group("/tasks", api.authRequired())
		{
			tasks.GET("", api.listTasks)
			tasks.POST("", api.createTask)
			tasks.GET(":taskID", api.getTask)
			tasks.PUT(":taskID", api.updateTask)
			tasks.PATCH(":taskID", api.updateTask)
			tasks.DELETE(":taskID", api.deleteTask)
			tasks.PATCH(":taskID/toggle", api.toggleTask)
		}

		categories := apiGroup.Group("/categories", api.authRequired())
		{
			categories.GET("", api.listCategories)
			categories.POST("", api.createCategory)
			categories.GET(":categoryID", api.getCategory)
			categories.PUT(":categoryID", api.updateCategory)
			categories.PATCH(":categoryID", api.updateCategory)
			categories.DELETE(":categoryID", api.deleteCategory)
		}
	}

	api.httpSrv.Handler = router
}

// errorStatus сводит доменные ошибки к HTTP-статусам. Чужая запись
// намеренно неотличима от отсутствующей: всегда 404, никогда 403.
func errorStatus(err error) int {
	switch err {
	case errors.ErrNotFound, errors.ErrUserNotFound:
		return http.StatusNotFound
	case errors.ErrUserAlreadyExists:
		return http.StatusConflict
	case errors.ErrInvalidCredentials, errors.ErrUnauthorized, errors.ErrInvalidToken, errors.ErrTokenExpired:
		return http.StatusUnauthorized
	case errors.ErrInvalidTitle, errors.ErrInvalidDescription, errors.ErrInvalidPriority,
		errors.ErrInvalidStatus, errors.ErrInvalidDueDate, errors.ErrInvalidCategory,
		errors.ErrInvalidCategoryName, errors.ErrCategoryExists, errors.ErrForeignCategory,
		errors.ErrInvalidUsername, errors.ErrInvalidEmail, errors.ErrInvalidPassword,
		errors.ErrValidationFailed, errors.ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		ctx.JSON(status, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	user, err := api.auth.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "пользователь успешно создан",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (api *TaskAPI) token(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrValidationFailed.Error()})
		return
	}

	user, err := api.auth.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	access, refresh, err := api.issueTokenPair(user)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

func (api *TaskAPI) tokenRefresh(ctx *gin.Context) {
	var req models.RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	claims, err := api.parseToken(req.Refresh)
	if err != nil || claims.Type != tokenTypeRefresh {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidToken.Error()})
		return
	}

	user, err := api.auth.Lookup(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	access, err := api.issueToken(user, tokenTypeAccess, time.Duration(api.cfg.AccessTTLMinutes)*time.Minute)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access": access})
}

func (api *TaskAPI) listTasks(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	opts := listOptionsFrom(ctx, []string{"priority", "status", "due_date", "category"})
	tasks, total, err := api.tasks.List(ctx.Request.Context(), p, opts)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, api.pageEnvelope(ctx, opts, total, tasks))
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	var req models.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	task, err := api.tasks.Create(ctx.Request.Context(), p, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, task)
}

func (api *TaskAPI) getTask(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	task, err := api.tasks.Get(ctx.Request.Context(), p, ctx.Param("taskID"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	var req models.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error()})
		return
	}

	task, err := api.tasks.Update(ctx.Request.Context(), p, ctx.Param("taskID"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	if err := api.tasks.Delete(ctx.Request.Context(), p, ctx.Param("taskID")); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (api *TaskAPI) toggleTask(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	// Тело необязательно: PATCH без тела означает переключение.
	var req models.ToggleTaskRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
			return
		}
	}

	task, err := api.tasks.Toggle(ctx.Request.Context(), p, ctx.Param("taskID"), req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}

func (api *TaskAPI) listCategories(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	opts := listOptionsFrom(ctx, nil)
	categories, total, err := api.categories.List(ctx.Request.Context(), p, opts)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, api.pageEnvelope(ctx, opts, total, categories))
}

func (api *TaskAPI) createCategory(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	var req models.CreateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidCategoryName.Error()})
		return
	}

	category, err := api.categories.Create(ctx.Request.Context(), p, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, category)
}

func (api *TaskAPI) getCategory(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	category, err := api.categories.Get(ctx.Request.Context(), p, ctx.Param("categoryID"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, category)
}

func (api *TaskAPI) updateCategory(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	var req models.UpdateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidCategoryName.Error()})
		return
	}

	category, err := api.categories.Update(ctx.Request.Context(), p, ctx.Param("categoryID"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, category)
}

func (api *TaskAPI) deleteCategory(ctx *gin.Context) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrUnauthorized.Error()})
		return
	}

	if err := api.categories.Delete(ctx.Request.Context(), p, ctx.Param("categoryID")); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// listOptionsFrom собирает распознанные параметры списка; все прочие ключи
// запроса игнорируются.
func listOptionsFrom(ctx *gin.Context, filterKeys []string) service.ListOptions {
	opts := service.ListOptions{
		Filters:  map[string]string{},
		Search:   ctx.Query("search"),
		Ordering: ctx.Query("ordering"),
	}
	for _, key := range filterKeys {
		if value := ctx.Query(key); value != "" {
			opts.Filters[key] = value
		}
	}
	if page, err := strconv.Atoi(ctx.Query("page")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(ctx.Query("page_size")); err == nil {
		opts.PageSize = size
	}
	return opts
}

// pageEnvelope строит конверт списка с абсолютными ссылками на соседние
// страницы в стиле DRF.
func (api *TaskAPI) pageEnvelope(ctx *gin.Context, opts service.ListOptions, total int64, results interface{}) models.Page {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = api.cfg.PageSize
	}
	if size > api.cfg.MaxPageSize {
		size = api.cfg.MaxPageSize
	}

	envelope := models.Page{Count: total, Results: results}
	if int64(page*size) < total {
		envelope.Next = pageLink(ctx, page+1)
	}
	if page > 1 {
		envelope.Previous = pageLink(ctx, page-1)
	}
	return envelope
}

func pageLink(ctx *gin.Context, page int) *string {
	link := *ctx.Request.URL
	query := link.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	link.RawQuery = query.Encode()

	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	absolute := url.URL{Scheme: scheme, Host: ctx.Request.Host, Path: link.Path, RawQuery: link.RawQuery}
	s := absolute.String()
	return &s
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Username":
				return errors.ErrInvalidUsername
			case "Email":
				return errors.ErrInvalidEmail
			case "Password":
				return errors.ErrInvalidPassword
			case "Title":
				return errors.ErrInvalidTitle
			case "Description":
				return errors.ErrInvalidDescription
			case "Priority":
				return errors.ErrInvalidPriority
			case "Status":
				return errors.ErrInvalidStatus
			case "DueDate":
				return errors.ErrInvalidDueDate
			case "Name":
				return errors.ErrInvalidCategoryName
			}
		}
	}
	return errors.ErrValidationFailed
}
