package knowledge

// SeedDocuments returns the built-in starter corpus. It covers the topics the
// default deployment is expected to answer out of the box; deployments with
// their own content replace it via LoadDirectory.
func SeedDocuments() []Document {
	return []Document{
		{
			ID:    "python_intro",
			Title: "Python Programming Basics",
			Text: "Python is a high-level, interpreted programming language created by Guido van Rossum " +
				"and first released in 1991. It emphasizes code readability with significant indentation. " +
				"Python supports multiple programming paradigms including procedural, object-oriented, " +
				"and functional programming.",
			Source: "python_basics.md",
		},
		{
			ID:    "python_uses",
			Title: "Python Applications",
			Text: "Python is widely used in various domains: web development (Django, Flask), data science " +
				"(pandas, NumPy), machine learning (TensorFlow, PyTorch, scikit-learn), automation and " +
				"scripting, scientific computing, game development, and desktop applications. Its extensive " +
				"standard library and third-party packages make it versatile for almost any task.",
			Source: "python_basics.md",
		},
		{
			ID:    "ml_intro",
			Title: "Machine Learning Introduction",
			Text: "Machine learning is a subset of artificial intelligence that enables systems to learn " +
				"and improve from experience without being explicitly programmed. It focuses on developing " +
				"algorithms that can access data and use it to learn for themselves. Common types include " +
				"supervised learning, unsupervised learning, and reinforcement learning.",
			Source: "ml_intro.md",
		},
		{
			ID:    "ml_algorithms",
			Title: "Common ML Algorithms",
			Text: "Popular machine learning algorithms include: Linear Regression for prediction, " +
				"Decision Trees for classification, Random Forests for ensemble learning, " +
				"Support Vector Machines (SVM) for classification, K-Means for clustering, " +
				"and Neural Networks for deep learning. Each algorithm has specific use cases " +
				"and performance characteristics.",
			Source: "ml_intro.md",
		},
		{
			ID:    "deep_learning",
			Title: "Deep Learning Overview",
			Text: "Deep learning uses artificial neural networks with multiple layers (deep networks) " +
				"to progressively extract higher-level features from raw input. Popular frameworks " +
				"include TensorFlow, PyTorch, and Keras. Applications include computer vision " +
				"(image classification, object detection), natural language processing (chatbots, " +
				"translation), speech recognition, and game playing (AlphaGo).",
			Source: "ml_intro.md",
		},
		{
			ID:    "docker_intro",
			Title: "Docker Containerization",
			Text: "Docker is a platform for developing, shipping, and running applications in containers. " +
				"Containers package software with all its dependencies, ensuring consistency across " +
				"different environments. Docker uses OS-level virtualization to deliver software in " +
				"packages called containers, which are isolated from one another and bundle their " +
				"own software, libraries, and configuration files.",
			Source: "devops.md",
		},
		{
			ID:    "docker_benefits",
			Title: "Benefits of Docker",
			Text: "Key benefits of Docker include: Portability (run anywhere), Consistency (same environment " +
				"in dev/staging/prod), Isolation (containers don't interfere with each other), " +
				"Efficiency (lightweight compared to VMs), Scalability (easy to scale up/down), " +
				"Version control (track container images), and Rapid deployment (start containers " +
				"in seconds).",
			Source: "devops.md",
		},
		{
			ID:    "kubernetes_intro",
			Title: "Kubernetes Orchestration",
			Text: "Kubernetes (K8s) is an open-source container orchestration platform that automates " +
				"deployment, scaling, and management of containerized applications. It groups containers " +
				"into logical units for easy management and discovery. Key concepts include Pods " +
				"(smallest deployable units), Services (network access), Deployments (desired state), " +
				"and Namespaces (virtual clusters).",
			Source: "devops.md",
		},
		{
			ID:    "git_basics",
			Title: "Git Version Control",
			Text: "Git is a distributed version control system for tracking changes in source code during " +
				"software development. It allows multiple developers to work together on non-linear " +
				"development. Key concepts include: repositories (project storage), commits (snapshots), " +
				"branches (parallel development), merging (combining changes), and remote repositories " +
				"(GitHub, GitLab).",
			Source: "git_guide.md",
		},
		{
			ID:    "rest_api",
			Title: "REST API Design",
			Text: "REST (Representational State Transfer) is an architectural style for designing networked " +
				"applications. RESTful APIs use HTTP methods: GET (retrieve), POST (create), PUT (update), " +
				"DELETE (remove). Key principles include statelessness, client-server separation, " +
				"cacheability, uniform interface, and layered system. Common formats are JSON and XML.",
			Source: "api_design.md",
		},
	}
}
